package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docship/internal/matrix"
	"git.home.luguber.info/inful/docship/internal/runner"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.LaneFinished("run-1", runner.Result{
		Job:      matrix.Job{Name: "test-linux", Stage: "test"},
		Status:   runner.StatusPassed,
		Duration: 150 * time.Millisecond,
	})
	pr.RunFinished(&runner.Report{
		Results:  []runner.Result{{Status: runner.StatusPassed}},
		Duration: 500 * time.Millisecond,
	})
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestHTTPHandlerServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.RunFinished(&runner.Report{Duration: time.Second})

	server := httptest.NewServer(HTTPHandler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
