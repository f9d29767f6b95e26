package w1

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sensorName = "28-0000066f9276"

func testFS() fstest.MapFS {
	return fstest.MapFS{
		sensorName + "/" + DeviceFile: &fstest.MapFile{
			Data: []byte("a3 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES\na3 01 4b 46 7f ff 0c 10 d8 t=23312\n"),
		},
		"28-dir/" + DeviceFile + "/x": &fstest.MapFile{},
	}
}

func TestRead(t *testing.T) {
	r := NewReaderFS(DefaultBaseDir, testFS())
	lines, err := r.Read(sensorName)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"a3 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES",
		"a3 01 4b 46 7f ff 0c 10 d8 t=23312",
	}, lines)

	again, err := r.Read(sensorName)
	require.NoError(t, err)
	assert.Equal(t, lines, again)
}

func TestRead_Missing(t *testing.T) {
	r := NewReaderFS("/sys/bus/w1/devices", testFS())
	_, err := r.Read("28-000000000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSensorUnavailable)
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "/sys/bus/w1/devices/28-000000000000/w1_slave", re.Path)
}

func TestRead_InvalidName(t *testing.T) {
	r := NewReaderFS(DefaultBaseDir, testFS())
	_, err := r.Read("../etc")
	assert.ErrorIs(t, err, ErrSensorUnavailable)
}

func TestExists(t *testing.T) {
	r := NewReaderFS(DefaultBaseDir, testFS())
	assert.NoError(t, r.Exists(sensorName))
	assert.ErrorIs(t, r.Exists("28-000000000000"), ErrSensorUnavailable)
	assert.ErrorIs(t, r.Exists("28-dir"), ErrSensorUnavailable)
}

func TestNewReader_MissingSensor(t *testing.T) {
	dir := t.TempDir()
	r := NewReader(dir)
	_, err := r.Read(sensorName)
	assert.ErrorIs(t, err, ErrSensorUnavailable)
}
