package observability

import (
	"time"

	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics публикует метрики сканов и подключений в Prometheus.
type PromMetrics struct {
	scansStarted  prometheus.Counter
	scansFinished *prometheus.CounterVec
	points        prometheus.Counter
	publishFailed prometheus.Counter
	activeScans   prometheus.Gauge
	connections   prometheus.Gauge
	scanDuration  prometheus.Histogram
}

func NewPromMetrics(reg prometheus.Registerer) interfaces.Metrics {
	m := &PromMetrics{
		scansStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ppmac_scans_started_total",
			Help: "Total fly scans started.",
		}),
		scansFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ppmac_scans_finished_total",
			Help: "Total fly scans finished, by final status.",
		}, []string{"status"}),
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ppmac_scan_points_total",
			Help: "Total scan points collected from controllers.",
		}),
		publishFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ppmac_publish_failed_total",
			Help: "Scan events that could not be sent to Kafka.",
		}),
		activeScans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ppmac_active_scans",
			Help: "Current number of running fly scans.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ppmac_connections",
			Help: "Current number of controller sessions in the pool.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ppmac_scan_duration_seconds",
			Help:    "Wall-clock duration of fly scans from start to terminal status.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	reg.MustRegister(m.scansStarted, m.scansFinished, m.points, m.publishFailed,
		m.activeScans, m.connections, m.scanDuration)
	return m
}

func (m *PromMetrics) ScanStarted() {
	m.scansStarted.Inc()
}

func (m *PromMetrics) ScanFinished(status string, duration time.Duration) {
	m.scansFinished.WithLabelValues(status).Inc()
	m.scanDuration.Observe(duration.Seconds())
}

func (m *PromMetrics) PointsRecorded(n int) {
	m.points.Add(float64(n))
}

func (m *PromMetrics) SetActiveScans(n int) {
	m.activeScans.Set(float64(n))
}

func (m *PromMetrics) SetConnections(n int) {
	m.connections.Set(float64(n))
}

func (m *PromMetrics) PublishFailed() {
	m.publishFailed.Inc()
}
