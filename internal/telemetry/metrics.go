package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gate's Prometheus metrics. Only the serve-metrics
// command creates and registers it; the pipeline and kernel neither
// receive nor update it, so the gate functions identically without it.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	DenialsTotal     *prometheus.CounterVec
	KernelDuration   prometheus.Histogram
	RegistrySize     prometheus.Gauge
	ApprovalsPending prometheus.Gauge
}

// NewMetrics creates and registers all metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		DecisionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "execgate",
				Name:      "decisions_total",
				Help:      "Total authority pipeline decisions by outcome",
			},
			[]string{"decision"}, // allow/hold/stop
		),
		DenialsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "execgate",
				Name:      "kernel_denials_total",
				Help:      "Total kernel verification denials by type",
			},
			[]string{"denial_type"},
		),
		KernelDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "execgate",
				Name:      "kernel_verify_duration_seconds",
				Help:      "Time spent in the kernel's verification chain",
				Buckets:   prometheus.DefBuckets,
			},
		),
		RegistrySize: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "execgate",
				Name:      "registry_used_tokens",
				Help:      "Number of used-token entries held by the replay registry",
			},
		),
		ApprovalsPending: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "execgate",
				Name:      "approvals_pending",
				Help:      "Number of scope elevations currently awaiting human approval",
			},
		),
	}
}
