// Package gauge exposes the last value of each sensor as a Prometheus gauge
// instead of shipping it anywhere.
package gauge

import (
	"context"

	"github.com/mascanio/pool-metrics/metrics"
	"github.com/mascanio/pool-metrics/sinks"
	"github.com/prometheus/client_golang/prometheus"
)

type Sink struct {
	value *prometheus.GaugeVec
	seen  *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Sink {
	s := &Sink{
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "w1_sensor_value",
			Help: "Last value sent for the sensor, in the configured unit",
		}, []string{"sensor", "unit"}),
		seen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "w1_sensor_value_timestamp_seconds",
			Help: "Unix time of the last value sent for the sensor",
		}, []string{"sensor"}),
	}
	reg.MustRegister(s.value, s.seen)
	return s
}

func (s *Sink) Send(_ context.Context, ev metrics.TelemetryEvent) error {
	s.value.WithLabelValues(ev.Label, string(ev.Unit)).Set(ev.Value)
	s.seen.WithLabelValues(ev.Label).Set(float64(ev.Time.UnixNano()) / 1e9)
	return nil
}

func (s *Sink) Close() error { return nil }

var _ sinks.EventSink = (*Sink)(nil)
