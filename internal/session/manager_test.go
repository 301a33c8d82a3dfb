package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestManagerServesWebSocketSession(t *testing.T) {
	manager := NewManager(&fakeLoader{page: Page{Fish: testFish(10, 2)}}, fakeRenderer{}, testConfig(), zap.NewNop())
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.Serve(context.Background(), ws)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	hello := InboundMessage{Type: MsgHello, Page: PageRegion, RegionID: "pacific-islands", Intersection: true}
	if err := client.WriteJSON(hello); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ready OutboundMessage
	if err := client.ReadJSON(&ready); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if ready.Type != MsgReady || ready.SessionID == "" || ready.Strategy != "intersection" {
		t.Fatalf("unexpected first message: %+v", ready)
	}

	sawPrefetch := false
	for i := 0; i < 10 && !sawPrefetch; i++ {
		var msg OutboundMessage
		if err := client.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		sawPrefetch = msg.Type == MsgPrefetch && msg.Directive != nil && msg.Directive.URL != ""
	}
	if !sawPrefetch {
		t.Fatalf("expected a prefetch directive after ready")
	}

	if manager.Count() != 1 {
		t.Fatalf("expected one live session, got %d", manager.Count())
	}

	_ = client.WriteJSON(InboundMessage{Type: MsgTeardown})
	_ = client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	deadline := time.Now().Add(5 * time.Second)
	for manager.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected session to be removed after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
