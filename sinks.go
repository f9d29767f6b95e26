package main

import (
	"context"
	"fmt"

	"github.com/mascanio/pool-metrics/config"
	"github.com/mascanio/pool-metrics/sinks"
	"github.com/mascanio/pool-metrics/sinks/gauge"
	"github.com/mascanio/pool-metrics/sinks/initialstate"
	"github.com/mascanio/pool-metrics/sinks/kafka"
	"github.com/mascanio/pool-metrics/sinks/mqtt"
	"github.com/mascanio/pool-metrics/sinks/redis"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// newSink opens every configured sink. With more than one, events are fanned
// out to all of them.
func newSink(ctx context.Context, cfg config.PollingConfig, reg prometheus.Registerer) (sinks.EventSink, error) {
	var out sinks.Multi
	for _, name := range cfg.Sinks {
		s, err := openSink(ctx, name, cfg, reg)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, s)
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

func openSink(ctx context.Context, name string, cfg config.PollingConfig, reg prometheus.Registerer) (sinks.EventSink, error) {
	switch name {
	case config.SinkInitialState:
		s := initialstate.New(cfg.InitialStateConfig())
		log.WithFields(log.Fields{"bucket": cfg.Bucket, "bucket_key": s.BucketKey()}).Info("Initial State bucket configured")
		return buffered(s, cfg.Buffer), nil
	case config.SinkMQTT:
		return mqtt.New(cfg.MQTT), nil
	case config.SinkKafka:
		return buffered(kafka.New(cfg.Kafka), cfg.Buffer), nil
	case config.SinkRedis:
		s := redis.New(cfg.Redis)
		if err := s.Ping(ctx); err != nil {
			log.WithError(err).WithField("addr", cfg.Redis.Addr).Warn("Redis not reachable yet, events will fail until it is")
		}
		return s, nil
	case config.SinkGauge:
		return gauge.New(reg), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}

func buffered(s sinks.BatchSender, size int) sinks.EventSink {
	if size <= 1 {
		return s
	}
	return sinks.NewBuffered(s, size)
}
