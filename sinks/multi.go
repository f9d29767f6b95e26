package sinks

import (
	"context"
	"errors"

	"github.com/mascanio/pool-metrics/metrics"
)

// Multi sends every event to all of its sinks. A failure in one sink does
// not prevent delivery to the others.
type Multi []EventSink

func (m Multi) Send(ctx context.Context, ev metrics.TelemetryEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending sums the events queued by every member.
func (m Multi) Pending() int {
	n := 0
	for _, s := range m {
		n += Pending(s)
	}
	return n
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
