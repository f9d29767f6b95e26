// Package kafka writes events to a Kafka topic keyed by sensor, so all
// readings of one sensor land in the same partition.
package kafka

import (
	"context"
	"time"

	"github.com/mascanio/pool-metrics/metrics"
	"github.com/mascanio/pool-metrics/sinks"
	"github.com/segmentio/kafka-go"
)

const name = "kafka"

type Config struct {
	Brokers []string      `yaml:"brokers"`
	Topic   string        `yaml:"topic"`
	Timeout time.Duration `yaml:"timeout"`
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Sink struct {
	w writer
}

func New(cfg Config) *Sink {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Sink{w: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.Timeout,
	}}
}

func (s *Sink) Send(ctx context.Context, ev metrics.TelemetryEvent) error {
	return s.SendBatch(ctx, []metrics.TelemetryEvent{ev})
}

func (s *Sink) SendBatch(ctx context.Context, evs []metrics.TelemetryEvent) error {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		b, err := sinks.Encode(ev)
		if err != nil {
			return sinks.Wrap(name, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.Label),
			Value: b,
			Time:  ev.Time,
			Headers: []kafka.Header{
				{Key: "unit", Value: []byte(ev.Unit)},
			},
		})
	}
	return sinks.Wrap(name, s.w.WriteMessages(ctx, msgs...))
}

func (s *Sink) Close() error {
	return sinks.Wrap(name, s.w.Close())
}

var _ sinks.BatchSender = (*Sink)(nil)
