package trigger

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the service's prometheus instruments.
type metrics struct {
	fires         *prometheus.CounterVec
	pollErrors    prometheus.Counter
	pollingTimers prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		fires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trigger_fires_total",
			Help: "Trigger firings by kind.",
		}, []string{"kind"}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trigger_poll_errors_total",
			Help: "Poll ticks that returned an error.",
		}),
		pollingTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trigger_active_polling_timers",
			Help: "Currently active polling timers.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.fires, m.pollErrors, m.pollingTimers)
	}
	return m
}

func (m *metrics) fired(kind Kind) {
	m.fires.WithLabelValues(kind.String()).Inc()
}
