package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/mascanio/pool-metrics/metrics"
	"github.com/mascanio/pool-metrics/sinks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s := New(Config{Addr: mr.Addr(), Stream: "w1:readings"})
	require.NoError(t, s.Ping(ctx))

	ev := metrics.TelemetryEvent{
		ID:    uuid.New(),
		Label: "28-0000066f9276",
		Value: 73.9616,
		Unit:  metrics.Fahrenheit,
		Time:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Send(ctx, ev))
	require.NoError(t, s.Send(ctx, ev))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	msgs, err := client.XRange(ctx, "w1:readings", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "28-0000066f9276", msgs[0].Values["sensor"])
	assert.Equal(t, "73.9616", msgs[0].Values["value"])
	assert.Equal(t, "F", msgs[0].Values["unit"])
	assert.Equal(t, "2024-06-01T12:00:00Z", msgs[0].Values["timestamp"])
	assert.Equal(t, ev.ID.String(), msgs[1].Values["id"])

	require.NoError(t, s.Close())
}

func TestSend_ServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s := New(Config{Addr: mr.Addr(), Stream: "w1:readings"})
	require.NoError(t, s.Ping(ctx))
	defer s.Close()

	mr.Close()
	err := s.Send(ctx, metrics.TelemetryEvent{Label: "x", Time: time.Now()})
	assert.ErrorIs(t, err, sinks.ErrSink)
}

func TestNew_UnreachableAtStart(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx := context.Background()
	s := New(Config{Addr: addr, Stream: "w1:readings"})
	defer s.Close()
	assert.ErrorIs(t, s.Ping(ctx), sinks.ErrSink)
	assert.ErrorIs(t, s.Send(ctx, metrics.TelemetryEvent{Label: "x", Time: time.Now()}), sinks.ErrSink)

	require.NoError(t, mr.Restart())
	require.NoError(t, s.Send(ctx, metrics.TelemetryEvent{Label: "x", Time: time.Now()}))
	entries, err := mr.Stream("w1:readings")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
