package metrics

import (
	"time"

	"github.com/google/uuid"
	"periph.io/x/conn/v3/physic"
)

type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

func (u Unit) Valid() bool {
	return u == Celsius || u == Fahrenheit
}

type Temperature struct {
	Value float64
	Unit  Unit
	// Physic is the same reading as an absolute temperature.
	Physic physic.Temperature
	// CRCChecked is set when the driver status line carried a crc verdict.
	CRCChecked bool
	CRCValid   bool
}

type TelemetryEvent struct {
	ID    uuid.UUID
	Label string
	Value float64
	Unit  Unit
	Time  time.Time
}

func NewEvent(label string, t Temperature, now time.Time) TelemetryEvent {
	return TelemetryEvent{
		ID:    uuid.New(),
		Label: label,
		Value: t.Value,
		Unit:  t.Unit,
		Time:  now,
	}
}
