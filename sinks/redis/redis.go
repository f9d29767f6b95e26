// Package redis appends events to a Redis stream with XADD.
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mascanio/pool-metrics/metrics"
	"github.com/mascanio/pool-metrics/sinks"
)

const name = "redis"

type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	// MaxLen caps the stream approximately; 0 keeps everything.
	MaxLen int64 `yaml:"max_len"`
}

type Sink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// New returns a sink for cfg. Connections are opened on demand, so an
// unreachable server only fails the Send calls made while it is down.
func New(cfg Config) *Sink {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Sink{client: client, stream: cfg.Stream, maxLen: cfg.MaxLen}
}

func (s *Sink) Ping(ctx context.Context) error {
	return sinks.Wrap(name, s.client.Ping(ctx).Err())
}

func (s *Sink) Send(ctx context.Context, ev metrics.TelemetryEvent) error {
	_, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: s.maxLen > 0,
		Values: map[string]interface{}{
			"id":        ev.ID.String(),
			"sensor":    ev.Label,
			"value":     strconv.FormatFloat(ev.Value, 'f', -1, 64),
			"unit":      string(ev.Unit),
			"timestamp": ev.Time.UTC().Format(time.RFC3339Nano),
		},
	}).Result()
	return sinks.Wrap(name, err)
}

func (s *Sink) Close() error {
	return sinks.Wrap(name, s.client.Close())
}

var _ sinks.EventSink = (*Sink)(nil)
