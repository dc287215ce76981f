package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMetrics(reg).(*PromMetrics)

	m.ScanStarted()
	m.ScanStarted()
	if got := testutil.ToFloat64(m.scansStarted); got != 2 {
		t.Fatalf("expected started counter 2, got %f", got)
	}

	m.ScanFinished("complete", 1500*time.Millisecond)
	m.ScanFinished("aborted", time.Second)
	if got := testutil.ToFloat64(m.scansFinished.WithLabelValues("complete")); got != 1 {
		t.Fatalf("expected complete counter 1, got %f", got)
	}
	if samples := testutil.CollectAndCount(m.scanDuration); samples != 1 {
		t.Fatalf("expected duration histogram to expose 1 metric, got %d", samples)
	}

	m.PointsRecorded(20)
	m.PointsRecorded(1)
	if got := testutil.ToFloat64(m.points); got != 21 {
		t.Fatalf("expected points counter 21, got %f", got)
	}

	m.SetActiveScans(3)
	m.SetConnections(2)
	if got := testutil.ToFloat64(m.activeScans); got != 3 {
		t.Fatalf("expected active scans gauge 3, got %f", got)
	}
	if got := testutil.ToFloat64(m.connections); got != 2 {
		t.Fatalf("expected connections gauge 2, got %f", got)
	}

	m.PublishFailed()
	if got := testutil.ToFloat64(m.publishFailed); got != 1 {
		t.Fatalf("expected publish failures 1, got %f", got)
	}

	if n := testutil.CollectAndCount(m.scansFinished); n != 2 {
		t.Fatalf("expected 2 status series, got %d", n)
	}
}

func TestPromMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPromMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	NewPromMetrics(reg)
}
