package diag

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrus(t *testing.T) {
	var buf bytes.Buffer
	l := log.New()
	l.SetOutput(&buf)
	l.SetFormatter(&log.JSONFormatter{})

	NewLogrus(l).Report(Record{
		Severity: Warn,
		Stage:    StageParse,
		Sensor:   "28-0000066f9276",
		Message:  "Parse error in line",
		Raw:      []string{"a", "b"},
		Err:      errors.New("boom"),
	})

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warning", got["level"])
	assert.Equal(t, "parse", got["stage"])
	assert.Equal(t, "28-0000066f9276", got["sensor"])
	assert.Equal(t, "Parse error in line", got["msg"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, []any{"a", "b"}, got["raw"])
}

func TestLogrus_DebugFiltered(t *testing.T) {
	var buf bytes.Buffer
	l := log.New()
	l.SetOutput(&buf)
	l.SetLevel(log.InfoLevel)

	NewLogrus(l).Report(Record{Severity: Debug, Stage: StageSleep, Message: "sleeping"})
	assert.Empty(t, buf.String())
}

func TestCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCounter(reg)
	Multi{c, Discard}.Report(Record{Severity: Error, Stage: StageRead})
	c.Report(Record{Severity: Error, Stage: StageRead})
	c.Report(Record{Severity: Info, Stage: StageSend})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.records.WithLabelValues("read", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.records.WithLabelValues("send", "info")))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Report(Record{Stage: StageRead})
	r.Report(Record{Stage: StageSend})
	r.Report(Record{Stage: StageRead})
	assert.Len(t, r.Records(), 3)
	assert.Len(t, r.Stage(StageRead), 2)
	assert.Empty(t, r.Stage(StageShutdown))
}
