package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paintersrp/reap/internal/metrics"
)

func TestRegistryExposesMetrics(t *testing.T) {
	metrics.EmitBuildInfo()
	metrics.AddSignalSent("SIGTERM")
	metrics.AddTermination("graceful")
	metrics.SetMonitoredTargets(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status code from metrics handler: %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `reap_signals_sent_total{signal="SIGTERM"}`) {
		t.Fatalf("expected signal counter in body:\n%s", body)
	}
	if !strings.Contains(body, `reap_terminations_total{stage="graceful"}`) {
		t.Fatalf("expected termination counter in body:\n%s", body)
	}
	if !strings.Contains(body, "reap_monitored_targets 3") {
		t.Fatalf("expected monitored targets gauge in body:\n%s", body)
	}
	if !strings.Contains(body, "reap_build_info{") {
		t.Fatalf("expected build info metric in body:\n%s", body)
	}
}
