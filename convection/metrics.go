package convection

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts kernel dispatches and times operator applications
type Metrics struct {
	Dispatches   *prometheus.CounterVec
	ApplySeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg, if not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pakernel_convection_dispatch_total",
				Help: "Convection kernel launches by dimension, kernel and operation",
			},
			[]string{"dim", "kernel", "op"},
		),
		ApplySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pakernel_convection_apply_seconds",
				Help:    "Duration of convection operator applications",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Dispatches, m.ApplySeconds)
	}
	return m
}

func (m *Metrics) observe(dim int, kernel, op string, start time.Time) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(strconv.Itoa(dim), kernel, op).Inc()
	m.ApplySeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
