// Package diag carries per-cycle diagnostics as structured records so that
// the console log and the metrics endpoint consume the same events.
package diag

import (
	"sync"
	"time"
)

type Severity int

const (
	Debug Severity = iota
	Info
	Warn
	Error
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

type Stage string

const (
	StageStartup  Stage = "startup"
	StageRead     Stage = "read"
	StageParse    Stage = "parse"
	StageSend     Stage = "send"
	StageSleep    Stage = "sleep"
	StageShutdown Stage = "shutdown"
)

type Record struct {
	Time     time.Time
	Severity Severity
	Stage    Stage
	Sensor   string
	Message  string
	// Raw is the sensor content the record refers to, if any.
	Raw []string
	// Value is set on successful sends.
	Value *float64
	Err   error
}

type Reporter interface {
	Report(Record)
}

type ReporterFunc func(Record)

func (f ReporterFunc) Report(r Record) { f(r) }

// Multi reports every record to each of its reporters in order.
type Multi []Reporter

func (m Multi) Report(r Record) {
	for _, rep := range m {
		rep.Report(r)
	}
}

// Discard drops every record.
var Discard Reporter = ReporterFunc(func(Record) {})

// Recorder keeps every record it is given. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) Report(rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Stage returns the records reported for stage s.
func (r *Recorder) Stage(s Stage) []Record {
	var out []Record
	for _, rec := range r.Records() {
		if rec.Stage == s {
			out = append(out, rec)
		}
	}
	return out
}
