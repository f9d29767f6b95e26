// Package initialstate streams events to an Initial State bucket through its
// HTTP events API.
package initialstate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/mascanio/pool-metrics/metrics"
	"github.com/mascanio/pool-metrics/sinks"
)

const (
	DefaultURL = "https://groker.init.st/api"
	name       = "initialstate"
)

type Config struct {
	URL        string        `yaml:"url"`
	AccessKey  string        `yaml:"-"`
	BucketName string        `yaml:"-"`
	BucketKey  string        `yaml:"-"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
}

type bucket struct {
	BucketKey  string `json:"bucketKey"`
	BucketName string `json:"bucketName"`
}

type event struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Epoch float64 `json:"epoch"`
}

type Sink struct {
	client *resty.Client
	cfg    Config

	mu      sync.Mutex
	created bool
}

// New returns a sink writing into cfg's bucket. A bucket key is generated
// when none is configured. Nothing is sent until the first event: the bucket
// is created then, and again on every later Send until that succeeds.
func New(cfg Config) *Sink {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BucketKey == "" {
		cfg.BucketKey = uuid.NewString()
	}
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept-Version", "~0").
		SetHeader("X-IS-AccessKey", cfg.AccessKey)
	return &Sink{client: client, cfg: cfg}
}

func (s *Sink) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return nil
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(bucket{BucketKey: s.cfg.BucketKey, BucketName: s.cfg.BucketName}).
		Post("/buckets")
	if err != nil {
		return fmt.Errorf("creating bucket %q: %w", s.cfg.BucketName, err)
	}
	if resp.IsError() {
		return fmt.Errorf("creating bucket %q: %s", s.cfg.BucketName, resp.Status())
	}
	s.created = true
	return nil
}

func (s *Sink) BucketKey() string { return s.cfg.BucketKey }

func (s *Sink) Send(ctx context.Context, ev metrics.TelemetryEvent) error {
	return s.SendBatch(ctx, []metrics.TelemetryEvent{ev})
}

func (s *Sink) SendBatch(ctx context.Context, evs []metrics.TelemetryEvent) error {
	if err := s.ensureBucket(ctx); err != nil {
		return sinks.Wrap(name, err)
	}
	body := make([]event, 0, len(evs))
	for _, ev := range evs {
		body = append(body, event{
			Key:   ev.Label,
			Value: ev.Value,
			Epoch: float64(ev.Time.Unix()) + float64(ev.Time.Nanosecond())/1e9,
		})
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-IS-BucketKey", s.cfg.BucketKey).
		SetBody(body).
		Post("/events")
	if err != nil {
		return sinks.Wrap(name, err)
	}
	if resp.IsError() {
		return sinks.Wrap(name, fmt.Errorf("posting %d events: %s", len(evs), resp.Status()))
	}
	return nil
}

// Close drops idle keep-alive connections. Nothing is buffered here.
func (s *Sink) Close() error {
	s.client.GetClient().CloseIdleConnections()
	return nil
}

var _ sinks.BatchSender = (*Sink)(nil)
