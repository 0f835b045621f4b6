package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentCountsByStatusClass(t *testing.T) {
	h := Instrument("test_op", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("test_op", "4xx"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("test_op", "4xx"))

	if after-before != 1 {
		t.Fatalf("requests_total{4xx} grew by %v, want 1", after-before)
	}
	if got := testutil.ToFloat64(InFlight.WithLabelValues("test_op")); got != 0 {
		t.Fatalf("in_flight = %v after request, want 0", got)
	}
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	SetBuildInfo("v0.0.0-test", "deadbeef")
	GossipRounds.Inc()

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		"fencer_gossip_rounds_total",
		`fencer_build_info{git_sha="deadbeef",version="v0.0.0-test"} 1`,
		"fencer_uptime_seconds",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
