// Package poller runs the read, parse and send cycle against one sensor on
// a fixed interval until its context is canceled.
//
// Failures inside a cycle never stop the loop: each one is turned into a
// diag.Record and the next cycle starts after the usual interval.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mascanio/pool-metrics/diag"
	"github.com/mascanio/pool-metrics/metrics"
	"github.com/mascanio/pool-metrics/providers/w1"
	"github.com/mascanio/pool-metrics/sinks"
	"periph.io/x/conn/v3/physic"
)

var ErrStopped = errors.New("poller: loop already stopped")

type State int32

const (
	Running State = iota
	Sleeping
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Reader returns the raw lines currently exposed for sensor.
type Reader interface {
	Read(sensor string) ([]string, error)
}

type ParseFunc func(lines []string, unit metrics.Unit) (metrics.Temperature, error)

type Config struct {
	Sensor string
	// Label names the series on the sink side. Defaults to Sensor.
	Label    string
	Unit     metrics.Unit
	Interval time.Duration
}

type Stats struct {
	Cycles      uint64       `json:"cycles"`
	Sent        uint64       `json:"sent"`
	Queued      uint64       `json:"queued"`
	ReadErrors  uint64       `json:"read_errors"`
	ParseErrors uint64       `json:"parse_errors"`
	SinkErrors  uint64       `json:"sink_errors"`
	LastValue   float64      `json:"last_value"`
	LastUnit    metrics.Unit `json:"last_unit,omitempty"`
	LastSent    time.Time    `json:"last_sent,omitempty"`
}

type Option func(*Loop)

func WithParser(p ParseFunc) Option {
	return func(l *Loop) { l.parse = p }
}

func WithReporter(r diag.Reporter) Option {
	return func(l *Loop) { l.report = r }
}

func WithCollectors(c *metrics.Collectors) Option {
	return func(l *Loop) { l.coll = c }
}

func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

type Loop struct {
	cfg    Config
	reader Reader
	parse  ParseFunc
	sink   sinks.EventSink
	report diag.Reporter
	coll   *metrics.Collectors
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error

	state    atomic.Int32
	stopOnce sync.Once

	mu    sync.Mutex
	stats Stats
}

// New returns a loop reading cfg.Sensor through reader and shipping to
// sink. The loop owns sink and closes it when Run returns.
func New(cfg Config, reader Reader, sink sinks.EventSink, opts ...Option) *Loop {
	if cfg.Label == "" {
		cfg.Label = cfg.Sensor
	}
	l := &Loop{
		cfg:    cfg,
		reader: reader,
		parse:  w1.Parse,
		sink:   sink,
		report: diag.Discard,
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Run executes cycles until ctx is canceled, then closes the sink and
// returns nil. A cancellation during the sleep between cycles is acted on
// immediately; one during a cycle lets the cycle finish first.
func (l *Loop) Run(ctx context.Context) error {
	if l.State() == Stopped {
		return ErrStopped
	}
	defer l.stop()

	for ctx.Err() == nil {
		l.state.Store(int32(Running))
		l.cycle(ctx)
		if ctx.Err() != nil {
			break
		}
		l.state.Store(int32(Sleeping))
		l.emit(diag.Record{
			Severity: diag.Debug,
			Stage:    diag.StageSleep,
			Message:  fmt.Sprintf("Cycle finished, sleeping %s", l.cfg.Interval),
		})
		if err := l.sleep(ctx, l.cfg.Interval); err != nil {
			break
		}
	}
	return nil
}

func (l *Loop) cycle(ctx context.Context) {
	l.update(func(s *Stats) { s.Cycles++ })

	l.emit(diag.Record{Severity: diag.Debug, Stage: diag.StageRead, Message: "Reading sensor " + l.cfg.Sensor})
	lines, err := l.reader.Read(l.cfg.Sensor)
	if err != nil {
		l.emit(diag.Record{Severity: diag.Error, Stage: diag.StageRead, Message: "Sensor unavailable, skipping cycle", Err: err})
		l.update(func(s *Stats) { s.ReadErrors++ })
		l.outcome(metrics.OutcomeReadError)
		return
	}

	t, err := l.parse(lines, l.cfg.Unit)
	if err != nil {
		l.emit(diag.Record{Severity: diag.Error, Stage: diag.StageParse, Message: "Parse error, skipping cycle", Raw: lines, Err: err})
		l.update(func(s *Stats) { s.ParseErrors++ })
		l.outcome(metrics.OutcomeParseError)
		return
	}
	if t.CRCChecked && !t.CRCValid {
		l.emit(diag.Record{Severity: diag.Warn, Stage: diag.StageParse, Message: "Driver reported a crc mismatch, sending anyway", Raw: lines})
	}
	if l.coll != nil {
		l.coll.Temperature.WithLabelValues(l.cfg.Sensor).Set(float64(t.Physic-physic.ZeroCelsius) / float64(physic.Celsius))
	}

	now := l.now()
	ev := metrics.NewEvent(l.cfg.Label, t, now)
	value := t.Value
	if err := l.sink.Send(ctx, ev); err != nil {
		l.emit(diag.Record{Severity: diag.Error, Stage: diag.StageSend, Message: "Sink rejected event", Value: &value, Err: err})
		l.update(func(s *Stats) { s.SinkErrors++ })
		l.outcome(metrics.OutcomeSinkError)
		return
	}
	if n := sinks.Pending(l.sink); n > 0 {
		l.emit(diag.Record{
			Severity: diag.Debug,
			Stage:    diag.StageSend,
			Message:  fmt.Sprintf("Queued temperature %g*%s, %d pending", t.Value, t.Unit, n),
			Value:    &value,
		})
		l.update(func(s *Stats) { s.Queued++ })
		l.outcome(metrics.OutcomeQueued)
		return
	}
	l.emit(diag.Record{
		Severity: diag.Info,
		Stage:    diag.StageSend,
		Message:  fmt.Sprintf("Temperature %g*%s", t.Value, t.Unit),
		Value:    &value,
	})
	l.update(func(s *Stats) {
		s.Sent++
		s.LastValue = t.Value
		s.LastUnit = t.Unit
		s.LastSent = now
	})
	l.outcome(metrics.OutcomeSent)
	if l.coll != nil {
		l.coll.LastSuccess.Set(float64(now.Unix()))
	}
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() {
		l.emit(diag.Record{Severity: diag.Info, Stage: diag.StageShutdown, Message: "Closing sink"})
		if err := l.sink.Close(); err != nil {
			l.emit(diag.Record{Severity: diag.Error, Stage: diag.StageShutdown, Message: "Closing sink failed", Err: err})
		}
		l.state.Store(int32(Stopped))
	})
}

func (l *Loop) emit(r diag.Record) {
	if r.Time.IsZero() {
		r.Time = l.now()
	}
	r.Sensor = l.cfg.Sensor
	l.report.Report(r)
}

func (l *Loop) update(f func(*Stats)) {
	l.mu.Lock()
	f(&l.stats)
	l.mu.Unlock()
}

func (l *Loop) outcome(o string) {
	if l.coll != nil {
		l.coll.Cycles.WithLabelValues(o).Inc()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
