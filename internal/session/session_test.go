package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/eventloop"
	"github.com/kapu/noaa-fisheries-web-go/internal/prefetch"
	"github.com/kapu/noaa-fisheries-web-go/internal/reveal"
	"github.com/kapu/noaa-fisheries-web-go/internal/service/fishapi"
	"github.com/kapu/noaa-fisheries-web-go/internal/viewport"
	"github.com/kapu/noaa-fisheries-web-go/pkg/errors"
	"go.uber.org/zap"
)

type recordingOutbox struct {
	msgs []OutboundMessage
}

func (o *recordingOutbox) Send(msg OutboundMessage) error {
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *recordingOutbox) ofType(typ string) []OutboundMessage {
	var out []OutboundMessage
	for _, m := range o.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (o *recordingOutbox) observed(handle viewport.ElementHandle) bool {
	for _, m := range o.msgs {
		if m.Type == MsgObserve && m.Handle == handle {
			return true
		}
	}
	return false
}

type fakeLoader struct {
	page Page
	err  error
}

func (f *fakeLoader) LoadPage(_ context.Context, kind PageKind, regionID, _ string) (Page, error) {
	if f.err != nil {
		return Page{}, f.err
	}
	page := f.page
	page.Kind = kind
	page.RegionID = regionID
	return page, nil
}

type fakeRenderer struct{}

func (fakeRenderer) RenderCards(_ Page, batch reveal.Batch) (string, error) {
	return fmt.Sprintf("cards %d-%d", batch.From, batch.To), nil
}

func testFish(n, images int) []domain.FishRecord {
	fish := make([]domain.FishRecord, n)
	for i := range fish {
		gallery := make(domain.Gallery, images)
		for j := range gallery {
			gallery[j] = domain.Image{Src: fmt.Sprintf("https://media.fisheries.noaa.gov/f%d-%d.jpg", i, j)}
		}
		fish[i] = domain.FishRecord{
			SpeciesName:         fmt.Sprintf("Fish %d", i),
			NOAAFisheriesRegion: "Pacific Islands",
			ImageGallery:        gallery,
		}
	}
	return fish
}

func testConfig() Config {
	return Config{
		InitialCount:    6,
		Reveal:          reveal.Config{BatchSize: 6, Delay: 300 * time.Millisecond},
		ScrollThreshold: 200,
		MarginPx:        100,
		Prefetch:        prefetch.DefaultConfig(),
	}
}

func newTestSession(loader PageLoader) (*Session, *eventloop.Manual, *recordingOutbox) {
	loop := eventloop.NewManual()
	out := &recordingOutbox{}
	s := New("test-session", loop, out, loader, fakeRenderer{}, testConfig(), zap.NewNop())
	return s, loop, out
}

func inView(handle viewport.ElementHandle) viewport.Entry {
	return viewport.Entry{
		Handle:   handle,
		Rect:     viewport.Rect{Top: 100, Bottom: 400},
		Viewport: viewport.Size{Width: 1280, Height: 800},
	}
}

func TestRegionSessionRevealsAndPrefetches(t *testing.T) {
	s, loop, out := newTestSession(&fakeLoader{page: Page{Fish: testFish(20, 3)}})
	ctx := context.Background()

	s.Dispatch(ctx, InboundMessage{Type: MsgHello, Page: PageRegion, RegionID: "pacific-islands", Intersection: true})
	loop.Drain()

	if out.msgs[0].Type != MsgReady || out.msgs[0].Strategy != reveal.StrategyIntersection {
		t.Fatalf("expected ready with intersection strategy first, got %+v", out.msgs[0])
	}
	if !out.observed(SentinelHandle) {
		t.Fatalf("expected sentinel observe message")
	}
	if n := len(out.ofType(MsgPrefetch)); n != 9 {
		t.Fatalf("expected 9 tier 1 prefetch messages, got %d", n)
	}
	for i := 3; i < 6; i++ {
		if !out.observed(CardHandle(i)) {
			t.Fatalf("expected card %d to be observed", i)
		}
	}
	if out.observed(CardHandle(0)) {
		t.Fatalf("tier 1 cards must not be observed")
	}

	s.Dispatch(ctx, InboundMessage{Type: MsgIntersect, Entries: []viewport.Entry{inView(SentinelHandle)}})
	loop.Drain()
	if s.Controller().State() != reveal.Loading {
		t.Fatalf("expected sentinel to start loading, got %s", s.Controller().State())
	}

	loop.Advance(300 * time.Millisecond)
	reveals := out.ofType(MsgReveal)
	if len(reveals) != 1 {
		t.Fatalf("expected one reveal, got %d", len(reveals))
	}
	payload := reveals[0].Reveal
	if payload.From != 6 || payload.To != 12 || !payload.HasMore || payload.HTML != "cards 6-12" {
		t.Fatalf("unexpected reveal payload: %+v", payload)
	}
	if !out.observed(CardHandle(11)) {
		t.Fatalf("expected newly revealed cards to be observed")
	}

	loop.Advance(200 * time.Millisecond)
	if n := len(out.ofType(MsgPrefetch)); n != 12 {
		t.Fatalf("expected tier 2 to add 3 directives, got %d", n)
	}

	s.Dispatch(ctx, InboundMessage{Type: MsgIntersect, Entries: []viewport.Entry{inView(CardHandle(4))}})
	s.Dispatch(ctx, InboundMessage{Type: MsgIntersect, Entries: []viewport.Entry{inView(CardHandle(4))}})
	loop.Drain()
	if n := len(out.ofType(MsgPrefetch)); n != 14 {
		t.Fatalf("expected card visibility to add 2 directives once, got %d", n)
	}
	if s.Ledger().Len() != 14 {
		t.Fatalf("expected ledger to match issued directives, got %d", s.Ledger().Len())
	}
}

func TestSessionTeardownStopsEverything(t *testing.T) {
	s, loop, out := newTestSession(&fakeLoader{page: Page{Fish: testFish(20, 3)}})
	ctx := context.Background()

	s.Dispatch(ctx, InboundMessage{Type: MsgHello, Page: PageRegion, Intersection: true})
	loop.Drain()
	s.Dispatch(ctx, InboundMessage{Type: MsgIntersect, Entries: []viewport.Entry{inView(SentinelHandle)}})
	s.Dispatch(ctx, InboundMessage{Type: MsgTeardown})
	loop.Drain()

	sent := len(out.msgs)
	loop.Advance(time.Minute)

	if len(out.msgs) != sent {
		t.Fatalf("expected no messages after teardown, got %v", out.msgs[sent:])
	}
	if !s.Closed() || s.Controller().Window().VisibleCount() != 6 {
		t.Fatalf("expected pending batch to be cancelled")
	}
	if s.Observer().Watching() != 0 {
		t.Fatalf("expected no observations after teardown")
	}
}

func TestScrollPollingSession(t *testing.T) {
	s, loop, out := newTestSession(&fakeLoader{page: Page{Fish: testFish(8, 1)}})
	ctx := context.Background()

	s.Dispatch(ctx, InboundMessage{Type: MsgHello, Page: PageRegion, Intersection: false})
	loop.Drain()

	if out.msgs[0].Strategy != reveal.StrategyScrollPolling {
		t.Fatalf("expected scroll-polling strategy, got %q", out.msgs[0].Strategy)
	}
	if out.observed(SentinelHandle) {
		t.Fatalf("scroll polling must not observe the sentinel")
	}

	vp := &viewport.Size{Height: 800}
	s.Dispatch(ctx, InboundMessage{Type: MsgScroll, LastItem: &viewport.Rect{Top: 1500}, Viewport: vp})
	loop.Drain()
	if s.Controller().State() != reveal.Idle {
		t.Fatalf("expected far scroll position to be ignored")
	}

	s.Dispatch(ctx, InboundMessage{Type: MsgScroll, LastItem: &viewport.Rect{Top: 900}, Viewport: vp})
	loop.Advance(300 * time.Millisecond)

	reveals := out.ofType(MsgReveal)
	if len(reveals) != 1 || reveals[0].Reveal.To != 8 || reveals[0].Reveal.HasMore {
		t.Fatalf("expected final reveal to 8, got %+v", reveals)
	}
	if s.Controller().State() != reveal.Exhausted {
		t.Fatalf("expected exhausted, got %s", s.Controller().State())
	}
}

func TestScrollPollingSessionTriggersCardsFromRepeatedReports(t *testing.T) {
	s, loop, out := newTestSession(&fakeLoader{page: Page{Fish: testFish(8, 3)}})
	ctx := context.Background()

	s.Dispatch(ctx, InboundMessage{Type: MsgHello, Page: PageRegion, Intersection: false})
	loop.Advance(time.Second)

	if !out.observed(CardHandle(4)) || !out.observed(CardHandle(5)) {
		t.Fatalf("expected cards past tier 1 to be observed in scroll-polling mode")
	}
	before := len(out.ofType(MsgPrefetch))

	vp := viewport.Size{Width: 1280, Height: 800}
	below := func(handle viewport.ElementHandle) viewport.Entry {
		return viewport.Entry{Handle: handle, Rect: viewport.Rect{Top: 2000, Bottom: 2300}, Viewport: vp}
	}

	// first report arrives while the cards are still below the fold
	s.Dispatch(ctx, InboundMessage{Type: MsgIntersect, Entries: []viewport.Entry{below(CardHandle(4)), below(CardHandle(5))}})
	loop.Drain()
	if n := len(out.ofType(MsgPrefetch)); n != before {
		t.Fatalf("expected off-screen cards to stay quiet, got %d new directives", n-before)
	}
	if !s.Observer().IsWatching(CardHandle(4)) {
		t.Fatalf("expected card 4 to stay watched after an off-screen report")
	}

	s.Dispatch(ctx, InboundMessage{Type: MsgIntersect, Entries: []viewport.Entry{inView(CardHandle(4)), below(CardHandle(5))}})
	loop.Drain()
	if n := len(out.ofType(MsgPrefetch)); n != before+2 {
		t.Fatalf("expected card 4 to add 2 directives, got %d", n-before)
	}

	released := false
	for _, m := range out.ofType(MsgRelease) {
		if m.Handle == CardHandle(4) {
			released = true
		}
		if m.Handle == CardHandle(5) {
			t.Fatalf("card 5 is still off-screen and must stay watched")
		}
	}
	if !released {
		t.Fatalf("expected card 4 to be released once visible")
	}
}

func TestSessionReportsLoadFailure(t *testing.T) {
	s, loop, out := newTestSession(&fakeLoader{err: errors.NewNotFoundError("region", "atlantis")})

	s.Dispatch(context.Background(), InboundMessage{Type: MsgHello, Page: PageRegion, RegionID: "atlantis"})
	loop.Drain()

	errs := out.ofType(MsgError)
	if len(errs) != 1 || errs[0].Message != "Page not found" {
		t.Fatalf("expected one not-found message, got %+v", out.msgs)
	}
	if s.Controller() != nil {
		t.Fatalf("expected no controller without a page")
	}
}

func TestHomeSessionWarmsRegions(t *testing.T) {
	regions := []prefetch.RegionFish{
		{Region: "Pacific Islands", Fish: testFish(4, 2)},
	}
	s, loop, out := newTestSession(&fakeLoader{page: Page{Regions: regions}})

	s.Dispatch(context.Background(), InboundMessage{Type: MsgHello, Page: PageHome})
	loop.Advance(0)

	directives := out.ofType(MsgPrefetch)
	if len(directives) != 3 {
		t.Fatalf("expected first images of 3 fish, got %d", len(directives))
	}
	if directives[0].Directive.Priority != domain.PriorityHigh || directives[0].Directive.Tier != prefetch.TierRegion {
		t.Fatalf("unexpected first directive: %+v", directives[0].Directive)
	}

	loop.Advance(10 * time.Second)
	if n := len(out.ofType(MsgRevoke)); n != 3 {
		t.Fatalf("expected residency to revoke 3 hints, got %d", n)
	}
}

func TestSessionLoadFailureHidesErrorDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := fishapi.NewClient(&http.Client{Timeout: time.Second}, baseURL, "TOPSECRETKEY", nil, zap.NewNop())
	loader := loaderFunc(func(ctx context.Context) (Page, error) {
		_, err := client.FetchAll(ctx)
		return Page{}, err
	})
	s, loop, out := newTestSession(loader)

	s.Dispatch(context.Background(), InboundMessage{Type: MsgHello, Page: PageRegion, RegionID: "pacific-islands"})
	loop.Drain()

	errs := out.ofType(MsgError)
	if len(errs) != 1 {
		t.Fatalf("expected one error message, got %+v", out.msgs)
	}
	if errs[0].Message != "Failed to load region data" {
		t.Fatalf("unexpected error message %q", errs[0].Message)
	}
	if strings.Contains(errs[0].Message, "TOPSECRETKEY") || strings.Contains(errs[0].Message, baseURL) {
		t.Fatalf("error details leaked to the browser: %q", errs[0].Message)
	}
}

type loaderFunc func(ctx context.Context) (Page, error)

func (f loaderFunc) LoadPage(ctx context.Context, _ PageKind, _, _ string) (Page, error) {
	return f(ctx)
}
