package fishapi

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kapu/noaa-fisheries-web-go/internal/util"
	"github.com/kapu/noaa-fisheries-web-go/pkg/errors"
	"go.uber.org/zap"
)

const samplePayload = `[
  {
    "SpeciesName": "Blue Marlin",
    "ScientificName": "Makaira nigricans",
    "NOAAFisheriesRegion": "Pacific Islands",
    "Calories": "120",
    "FatTotal": "1.2 g",
    "ImageGallery": [{"src": "https://media.fisheries.noaa.gov/marlin.jpg", "alt": "Blue marlin"}]
  },
  {
    "SpeciesName": "Yellowfin Tuna",
    "NOAAFisheriesRegion": "Pacific Islands",
    "ImageGallery": null
  }
]`

func TestFetchAllDecodesRecords(t *testing.T) {
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, "secret key", nil, zap.NewNop())
	records, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/gofish" || gotKey != "secret key" {
		t.Fatalf("unexpected request: path=%q key=%q", gotPath, gotKey)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].SpeciesName != "Blue Marlin" || len(records[0].ImageGallery) != 1 {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].HasGallery() {
		t.Fatalf("expected null gallery to decode as empty")
	}
}

func TestFetchAllFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, "bad", nil, zap.NewNop())
	_, err := client.FetchAll(context.Background())
	if !errors.IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}

	var netErr *errors.NetworkError
	if !stderrors.As(err, &netErr) || netErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected upstream status to be kept, got %+v", err)
	}
	if netErr.URL != srv.URL+"/gofish" {
		t.Fatalf("expected api key to stay out of the error url, got %q", netErr.URL)
	}
}

func TestFetchAllFailsOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(&http.Client{Timeout: time.Second}, url, "TOPSECRETKEY", nil, zap.NewNop())
	_, err := client.FetchAll(context.Background())
	if !errors.IsNetworkError(err) {
		t.Fatalf("expected NetworkError for closed server, got %v", err)
	}
	if strings.Contains(err.Error(), "TOPSECRETKEY") {
		t.Fatalf("api key leaked into error: %v", err)
	}
	if !strings.Contains(err.Error(), url+"/gofish") {
		t.Fatalf("expected endpoint in error, got %v", err)
	}
}

func TestFetchAllFailsOnMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "not a list"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, "k", nil, zap.NewNop())
	if _, err := client.FetchAll(context.Background()); !errors.IsNetworkError(err) {
		t.Fatalf("expected NetworkError for malformed payload, got %v", err)
	}
}

func TestFetchAllFailsFastWhenBreakerOpen(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker := util.NewCircuitBreaker("fishapi", 2, time.Minute, zap.NewNop())
	client := NewClient(srv.Client(), srv.URL, "k", breaker, zap.NewNop())

	for i := 0; i < 4; i++ {
		if _, err := client.FetchAll(context.Background()); !errors.IsNetworkError(err) {
			t.Fatalf("call %d: expected NetworkError, got %v", i+1, err)
		}
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected breaker to stop upstream calls after 2 failures, got %d", got)
	}
	if client.BreakerStatus().State != util.CircuitStateOpen {
		t.Fatalf("expected open breaker, got %s", client.BreakerStatus().State)
	}
}
