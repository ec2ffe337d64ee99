package watcher

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the Watcher's Prometheus instrumentation: one counter per
// alert rule, labeled by rule name so a single CounterVec covers all four.
type Metrics struct {
	alertsTotal *prometheus.CounterVec
	scansTotal  prometheus.Counter
}

// NewMetrics builds and registers the Watcher's metrics against reg. A nil
// reg is accepted and yields a Metrics that counts in-process only (no
// registration, no scrape endpoint) — useful for tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conductor",
				Subsystem: "watcher",
				Name:      "alerts_total",
				Help:      "Total number of watcher alerts emitted, by rule",
			},
			[]string{"rule"},
		),
		scansTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "conductor",
				Subsystem: "watcher",
				Name:      "scans_total",
				Help:      "Total number of watcher scans performed",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.alertsTotal, m.scansTotal)
	}
	return m
}

func (m *Metrics) observeScan() {
	if m == nil {
		return
	}
	m.scansTotal.Inc()
}

func (m *Metrics) observeAlert(rule string) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(rule).Inc()
}
