package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSignal(t *testing.T) {
	SamplesTotal.Reset()
	RawOFI.Reset()
	SmoothedOFI.Reset()

	ObserveSignal("orderbook.50.BTCUSDT", 1.5, 0.75)
	ObserveSignal("orderbook.50.BTCUSDT", -2, 0.5)

	if got := testutil.ToFloat64(SamplesTotal.WithLabelValues("orderbook.50.BTCUSDT")); got != 2 {
		t.Errorf("Expected 2 samples, got %f", got)
	}
	if got := testutil.ToFloat64(RawOFI.WithLabelValues("orderbook.50.BTCUSDT")); got != -2 {
		t.Errorf("Expected raw -2, got %f", got)
	}
	if got := testutil.ToFloat64(SmoothedOFI.WithLabelValues("orderbook.50.BTCUSDT")); got != 0.5 {
		t.Errorf("Expected smoothed 0.5, got %f", got)
	}
}

func TestServerExposesMetrics(t *testing.T) {
	Reconnects.Reset()
	Reconnects.WithLabelValues("orderbook.1.ETHUSDT").Inc()

	srv := NewServer(":0")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `ofi_reconnects_total{channel="orderbook.1.ETHUSDT"} 1`) {
		t.Fatalf("reconnect counter missing from exposition")
	}
}
