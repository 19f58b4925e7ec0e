package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paintersrp/procsup/internal/metrics"
)

func TestRegistryExposesMetrics(t *testing.T) {
	metrics.EmitBuildInfo()
	metrics.ProcessSpawned()
	metrics.ProcessExited("signaled", 250*time.Millisecond)
	metrics.ObserveCapturedBytes("stdout", 6)
	metrics.IncrementKillRequests()
	metrics.AddEventsDropped(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status code from metrics handler: %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"procsup_processes_spawned_total ",
		"procsup_processes_running ",
		`procsup_process_exits_total{outcome="signaled"} `,
		"procsup_process_lifetime_seconds_count ",
		`procsup_captured_bytes_count{stream="stdout"} `,
		"procsup_kill_requests_total ",
		"procsup_events_dropped_total ",
		"procsup_build_info{",
		"go_version=",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics body:\n%s", want, body)
		}
	}
}

func TestIgnoresInvalidObservations(t *testing.T) {
	metrics.ObserveCapturedBytes("", 10)
	metrics.AddEventsDropped(0)
	metrics.AddEventsDropped(-4)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), `stream=""`) {
		t.Fatalf("expected empty stream label to be ignored:\n%s", rec.Body.String())
	}
}
