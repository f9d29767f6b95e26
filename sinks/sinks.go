// Package sinks defines the destination of telemetry events and the
// wrappers shared by every concrete sink in the subpackages.
package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mascanio/pool-metrics/metrics"
)

var ErrSink = errors.New("sink error")

// EventSink accepts one event at a time. Send blocks until the event is
// accepted or rejected; Close releases the connection and flushes anything
// still queued.
type EventSink interface {
	Send(ctx context.Context, ev metrics.TelemetryEvent) error
	Close() error
}

// BatchSender is implemented by sinks that can ship several events in one
// request.
type BatchSender interface {
	EventSink
	SendBatch(ctx context.Context, evs []metrics.TelemetryEvent) error
}

// Queuer is implemented by sinks that can accept an event on Send without
// delivering it yet.
type Queuer interface {
	Pending() int
}

// Pending returns how many accepted events s still holds undelivered.
func Pending(s EventSink) int {
	if q, ok := s.(Queuer); ok {
		return q.Pending()
	}
	return 0
}

// Error tags a failure with the sink that produced it. It matches ErrSink.
type Error struct {
	Sink string
	Err  error
}

func (e *Error) Error() string { return e.Sink + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrSink }

// Wrap returns nil if err is nil.
func Wrap(sink string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Sink: sink, Err: err}
}

// Payload is the JSON document written by the message-oriented sinks.
type Payload struct {
	ID        string    `json:"id"`
	Sensor    string    `json:"sensor"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPayload(ev metrics.TelemetryEvent) Payload {
	return Payload{
		ID:        ev.ID.String(),
		Sensor:    ev.Label,
		Value:     ev.Value,
		Unit:      string(ev.Unit),
		Timestamp: ev.Time.UTC(),
	}
}

func Encode(ev metrics.TelemetryEvent) ([]byte, error) {
	return json.Marshal(NewPayload(ev))
}
