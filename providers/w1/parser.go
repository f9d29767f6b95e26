package w1

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mascanio/pool-metrics/metrics"
	"periph.io/x/conn/v3/physic"
)

// Marker precedes the milli-degree Celsius payload on the data line.
const Marker = "t="

var ErrMalformedReading = errors.New("w1: malformed reading")

// ParseError is returned by Parse. It carries the offending lines and matches
// ErrMalformedReading.
type ParseError struct {
	Lines  []string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	s := "w1: " + e.Reason
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s in %q", s, e.Lines)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrMalformedReading }

// Parse converts the raw w1_slave lines into a temperature in unit. Anything
// other than metrics.Fahrenheit yields Celsius.
//
// The crc verdict on the status line is recorded but not enforced.
func Parse(lines []string, unit metrics.Unit) (metrics.Temperature, error) {
	if len(lines) < 2 {
		return metrics.Temperature{}, &ParseError{Lines: lines, Reason: "missing data line"}
	}
	data := lines[1]
	i := strings.Index(data, Marker)
	if i == -1 {
		return metrics.Temperature{}, &ParseError{Lines: lines, Reason: "marker " + Marker + " not found"}
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(data[i+len(Marker):]), 64)
	if err != nil {
		return metrics.Temperature{}, &ParseError{Lines: lines, Reason: "payload is not a number", Err: err}
	}
	if math.IsNaN(milli) || math.IsInf(milli, 0) {
		return metrics.Temperature{}, &ParseError{Lines: lines, Reason: "payload is not a finite number"}
	}

	c := milli / 1000
	t := metrics.Temperature{
		Value:  c,
		Unit:   metrics.Celsius,
		Physic: physic.ZeroCelsius + physic.Temperature(milli*float64(physic.MilliKelvin)),
	}
	if unit == metrics.Fahrenheit {
		t.Value = c*9/5 + 32
		t.Unit = metrics.Fahrenheit
	}
	t.CRCChecked, t.CRCValid = crcStatus(lines[0])
	return t, nil
}

// crcStatus looks for "crc=xx YES|NO" or a bare "crc=NO" on the status line.
func crcStatus(line string) (checked, valid bool) {
	i := strings.Index(line, "crc=")
	if i == -1 {
		return false, false
	}
	f := strings.Fields(line[i+len("crc="):])
	if len(f) == 0 {
		return false, false
	}
	switch f[len(f)-1] {
	case "YES":
		return true, true
	case "NO":
		return true, false
	}
	return false, false
}
