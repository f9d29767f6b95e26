package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcomes used as the "outcome" label of w1_cycles_total.
const (
	OutcomeSent       = "sent"
	OutcomeQueued     = "queued"
	OutcomeReadError  = "read_error"
	OutcomeParseError = "parse_error"
	OutcomeSinkError  = "sink_error"
)

type Collectors struct {
	Cycles      *prometheus.CounterVec
	Temperature *prometheus.GaugeVec
	LastSuccess prometheus.Gauge
}

func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "w1_cycles_total",
			Help: "Poll cycles by outcome",
		}, []string{"outcome"}),
		Temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "w1_temperature_celsius",
			Help: "Last parsed temperature of the sensor",
		}, []string{"sensor"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "w1_last_success_timestamp_seconds",
			Help: "Unix time of the last event accepted by the sink",
		}),
	}
	reg.MustRegister(c.Cycles, c.Temperature, c.LastSuccess)
	for _, o := range []string{OutcomeSent, OutcomeReadError, OutcomeParseError, OutcomeSinkError} {
		c.Cycles.WithLabelValues(o)
	}
	return c
}
