// Package mqtt publishes events as JSON documents to an MQTT broker, one
// topic per sensor under a common prefix.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/mascanio/pool-metrics/metrics"
	"github.com/mascanio/pool-metrics/sinks"
)

const name = "mqtt"

type Config struct {
	Broker   string        `yaml:"broker"`
	ClientID string        `yaml:"client_id"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Topic    string        `yaml:"topic"`
	QoS      byte          `yaml:"qos"`
	Retained bool          `yaml:"retained"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Sink struct {
	client paho.Client
	cfg    Config
}

// New starts connecting to cfg.Broker in the background and returns
// immediately. The client keeps retrying until the broker answers; publishes
// made before then either wait for it or fail with a timeout.
func New(cfg Config) *Sink {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(cfg.Timeout)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(cfg.Timeout)

	client := paho.NewClient(opts)
	client.Connect()
	return newSink(client, cfg)
}

func newSink(client paho.Client, cfg Config) *Sink {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Sink{client: client, cfg: cfg}
}

// Topic returns the topic events for label are published on.
func (s *Sink) Topic(label string) string {
	return path.Join(s.cfg.Topic, label)
}

func (s *Sink) Send(ctx context.Context, ev metrics.TelemetryEvent) error {
	payload, err := sinks.Encode(ev)
	if err != nil {
		return sinks.Wrap(name, err)
	}
	topic := s.Topic(ev.Label)
	token := s.client.Publish(topic, s.cfg.QoS, s.cfg.Retained, payload)

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return sinks.Wrap(name, ctx.Err())
	case <-timer.C:
		return sinks.Wrap(name, errors.New("publish to "+topic+" timed out"))
	}
	if err := token.Error(); err != nil {
		return sinks.Wrap(name, fmt.Errorf("publish to %s: %w", topic, err))
	}
	return nil
}

// Close disconnects, giving in-flight publishes 250ms to complete.
func (s *Sink) Close() error {
	s.client.Disconnect(250)
	return nil
}

var _ sinks.EventSink = (*Sink)(nil)
