package sinks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mascanio/pool-metrics/metrics"
)

// FlushTimeout bounds the final flush done by Buffered.Close.
var FlushTimeout = 10 * time.Second

// Buffered queues events and hands them to the underlying sink in batches
// of size. A failed batch is dropped and reported through the returned
// error; nothing is kept across failures.
type Buffered struct {
	next BatchSender
	size int

	mu  sync.Mutex
	buf []metrics.TelemetryEvent
}

func NewBuffered(next BatchSender, size int) *Buffered {
	if size < 1 {
		size = 1
	}
	return &Buffered{next: next, size: size}
}

func (b *Buffered) Send(ctx context.Context, ev metrics.TelemetryEvent) error {
	b.mu.Lock()
	b.buf = append(b.buf, ev)
	if len(b.buf) < b.size {
		b.mu.Unlock()
		return nil
	}
	batch := b.buf
	b.buf = nil
	b.mu.Unlock()
	return b.flush(ctx, batch)
}

// Pending returns the number of queued events.
func (b *Buffered) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

func (b *Buffered) Close() error {
	b.mu.Lock()
	batch := b.buf
	b.buf = nil
	b.mu.Unlock()

	var err error
	if len(batch) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
		err = b.flush(ctx, batch)
		cancel()
	}
	if cerr := b.next.Close(); err == nil {
		err = cerr
	}
	return err
}

func (b *Buffered) flush(ctx context.Context, batch []metrics.TelemetryEvent) error {
	if err := b.next.SendBatch(ctx, batch); err != nil {
		return fmt.Errorf("dropping %d events: %w", len(batch), err)
	}
	return nil
}
