package diag

import (
	log "github.com/sirupsen/logrus"
)

// Logrus renders records as logrus entries. Stage, sensor, raw content and
// the error become fields.
type Logrus struct {
	entry *log.Entry
}

func NewLogrus(l *log.Logger) *Logrus {
	return &Logrus{entry: log.NewEntry(l)}
}

func (l *Logrus) Report(r Record) {
	e := l.entry.WithField("stage", string(r.Stage))
	if !r.Time.IsZero() {
		e = e.WithTime(r.Time)
	}
	if r.Sensor != "" {
		e = e.WithField("sensor", r.Sensor)
	}
	if r.Raw != nil {
		e = e.WithField("raw", r.Raw)
	}
	if r.Value != nil {
		e = e.WithField("value", *r.Value)
	}
	if r.Err != nil {
		e = e.WithError(r.Err)
	}
	e.Log(level(r.Severity), r.Message)
}

func level(s Severity) log.Level {
	switch s {
	case Debug:
		return log.DebugLevel
	case Warn:
		return log.WarnLevel
	case Error:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
