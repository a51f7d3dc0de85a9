package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNoopMetrics(t *testing.T) {
	var m Noop
	m.IncJobsStarted("video")
	m.IncJobsFinished("video", OutcomeCompleted)
	m.ObserveTransformDuration("video", 1)
	m.SetQueueDepth(3)
	m.IncArtifactsRemoved("expired")
	m.IncSweepErrors()
	m.ObserveSweepDuration(0.1)
	m.ObserveRequest("GET", "/health", "200", 0.01)
}

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewProm("gateway", reg)

	m.IncJobsStarted("audio")
	m.IncJobsFinished("audio", OutcomeTransformFailed)
	m.ObserveTransformDuration("audio", 12)
	m.SetQueueDepth(2)
	m.IncArtifactsRemoved("expired")
	m.IncSweepErrors()
	m.ObserveSweepDuration(0.5)
	m.ObserveRequest("POST", "/api/download/audio", "502", 12.5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	checks := []struct {
		name   string
		labels map[string]string
	}{
		{"gateway_jobs_started_total", map[string]string{"kind": "audio"}},
		{"gateway_jobs_finished_total", map[string]string{"kind": "audio", "outcome": OutcomeTransformFailed}},
		{"gateway_transform_duration_seconds", map[string]string{"kind": "audio"}},
		{"gateway_transform_queue_depth", nil},
		{"gateway_artifacts_removed_total", map[string]string{"reason": "expired"}},
		{"gateway_sweep_errors_total", nil},
		{"gateway_sweep_duration_seconds", nil},
		{"gateway_http_requests_total", map[string]string{"method": "POST", "route": "/api/download/audio", "status": "502"}},
		{"gateway_http_request_duration_seconds", map[string]string{"method": "POST", "route": "/api/download/audio"}},
	}
	for _, c := range checks {
		if !hasMetric(families, c.name, c.labels) {
			t.Fatalf("expected metric %s with labels %v", c.name, c.labels)
		}
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewProm("gateway", reg)
	m.IncJobsStarted("video")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `gateway_jobs_started_total{kind="video"} 1`) {
		t.Fatalf("exposition missing counter:\n%s", rec.Body.String())
	}
}

func hasMetric(families []*dto.MetricFamily, name string, labels map[string]string) bool {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if labelsMatch(metric.GetLabel(), labels) {
				return true
			}
		}
	}
	return false
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(want) == 0 {
		return true
	}
	found := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			found++
		}
	}
	return found == len(want)
}
