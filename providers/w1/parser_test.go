package w1

import (
	"errors"
	"testing"

	"github.com/mascanio/pool-metrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

var goodLines = []string{
	"a3 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES",
	"a3 01 4b 46 7f ff 0c 10 d8 t=23312",
}

func TestParse_Celsius(t *testing.T) {
	temp, err := Parse(goodLines, metrics.Celsius)
	require.NoError(t, err)
	assert.InDelta(t, 23.312, temp.Value, 1e-9)
	assert.Equal(t, metrics.Celsius, temp.Unit)
	assert.True(t, temp.CRCChecked)
	assert.True(t, temp.CRCValid)
	assert.Equal(t, physic.ZeroCelsius+23312*physic.MilliKelvin, temp.Physic)
}

func TestParse_Fahrenheit(t *testing.T) {
	temp, err := Parse(goodLines, metrics.Fahrenheit)
	require.NoError(t, err)
	assert.InDelta(t, 73.9616, temp.Value, 1e-9)
	assert.Equal(t, metrics.Fahrenheit, temp.Unit)
}

func TestParse_CRCNotEnforced(t *testing.T) {
	lines := []string{
		"a3 01 4b 46 7f ff 0c 10 d8 : crc=NO",
		"a3 01 4b 46 7f ff 0c 10 d8 t=23312",
	}
	temp, err := Parse(lines, metrics.Celsius)
	require.NoError(t, err)
	assert.InDelta(t, 23.312, temp.Value, 1e-9)
	assert.True(t, temp.CRCChecked)
	assert.False(t, temp.CRCValid)
}

func TestCRCStatus(t *testing.T) {
	tests := []struct {
		line           string
		checked, valid bool
	}{
		{"a3 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES", true, true},
		{"a3 01 4b 46 7f ff 0c 10 d8 : crc=d8 NO", true, false},
		{"a3 01 4b 46 7f ff 0c 10 d8 : crc=NO", true, false},
		{"a3 01 4b 46 7f ff 0c 10 d8 : crc=YES", true, true},
		{"a3 01 4b 46 7f ff 0c 10 d8 : crc=", false, false},
		{"a3 01 4b 46 7f ff 0c 10 d8 : crc=d8", false, false},
		{"a3 01 4b 46 7f ff 0c 10 d8", false, false},
	}
	for _, tt := range tests {
		checked, valid := crcStatus(tt.line)
		assert.Equal(t, tt.checked, checked, tt.line)
		assert.Equal(t, tt.valid, valid, tt.line)
	}
}

func TestParse_Conversion(t *testing.T) {
	for _, milli := range []string{"0", "-10062", "85000", "125000", "-55000", "1", "23312.5"} {
		lines := []string{"crc=00 YES", "xx t=" + milli}
		c, err := Parse(lines, metrics.Celsius)
		require.NoError(t, err, milli)
		f, err := Parse(lines, metrics.Fahrenheit)
		require.NoError(t, err, milli)
		assert.InDelta(t, c.Value*9/5+32, f.Value, 1e-9, milli)
	}
}

func TestParse_Negative(t *testing.T) {
	temp, err := Parse([]string{"", "t=-10062"}, metrics.Celsius)
	require.NoError(t, err)
	assert.InDelta(t, -10.062, temp.Value, 1e-9)
	assert.False(t, temp.CRCChecked)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"empty", nil},
		{"one line", []string{"a3 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES"}},
		{"no marker", []string{"a3 : crc=d8 YES", "a3 01 4b 46 7f ff 0c 10 d8"}},
		{"marker on status line only", []string{"t=23312", "a3 01"}},
		{"not a number", []string{"crc=d8 YES", "a3 t=abc"}},
		{"empty payload", []string{"crc=d8 YES", "a3 t="}},
		{"nan", []string{"crc=d8 YES", "a3 t=NaN"}},
		{"inf", []string{"crc=d8 YES", "a3 t=+Inf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.lines, metrics.Celsius)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedReading)
			assert.False(t, errors.Is(err, ErrSensorUnavailable))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.lines, pe.Lines)
		})
	}
}
