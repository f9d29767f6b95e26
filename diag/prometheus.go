package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counter counts records by stage and severity.
type Counter struct {
	records *prometheus.CounterVec
}

func NewCounter(reg prometheus.Registerer) *Counter {
	c := &Counter{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "w1_diagnostics_total",
			Help: "Diagnostic records by stage and severity",
		}, []string{"stage", "severity"}),
	}
	reg.MustRegister(c.records)
	return c
}

func (c *Counter) Report(r Record) {
	c.records.WithLabelValues(string(r.Stage), r.Severity.String()).Inc()
}
