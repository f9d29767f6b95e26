// Package w1 reads DS18B20-style temperature sensors exposed by the Linux
// w1-therm driver under /sys/bus/w1/devices.
package w1

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	DefaultBaseDir = "/sys/bus/w1/devices/"
	DeviceFile     = "w1_slave"
)

var ErrSensorUnavailable = errors.New("w1: sensor unavailable")

// ReadError is returned by Reader.Read. It matches ErrSensorUnavailable.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return "w1: reading " + e.Path + ": " + e.Err.Error()
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrSensorUnavailable }

// Reader acquires the raw content of a sensor's w1_slave file. It does not
// cache; every call hits the driver, which triggers a fresh conversion.
type Reader struct {
	baseDir string
	fsys    fs.FS
}

func NewReader(baseDir string) *Reader {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	return &Reader{baseDir: baseDir, fsys: os.DirFS(baseDir)}
}

// NewReaderFS is like NewReader but reads from fsys. baseDir is only used to
// render paths in errors.
func NewReaderFS(baseDir string, fsys fs.FS) *Reader {
	return &Reader{baseDir: baseDir, fsys: fsys}
}

// Path returns the location of the device file for sensor.
func (r *Reader) Path(sensor string) string {
	return filepath.Join(r.baseDir, sensor, DeviceFile)
}

// Exists reports whether the device file for sensor is present and is not a
// directory.
func (r *Reader) Exists(sensor string) error {
	name := path.Join(sensor, DeviceFile)
	if !fs.ValidPath(name) {
		return &ReadError{Path: r.Path(sensor), Err: fs.ErrInvalid}
	}
	fi, err := fs.Stat(r.fsys, name)
	if err != nil {
		return &ReadError{Path: r.Path(sensor), Err: err}
	}
	if fi.IsDir() {
		return &ReadError{Path: r.Path(sensor), Err: errors.New("is a directory")}
	}
	return nil
}

// Read returns the lines of the device file for sensor. A trailing newline
// does not produce an empty last line.
func (r *Reader) Read(sensor string) ([]string, error) {
	name := path.Join(sensor, DeviceFile)
	if !fs.ValidPath(name) {
		return nil, &ReadError{Path: r.Path(sensor), Err: fs.ErrInvalid}
	}
	b, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, &ReadError{Path: r.Path(sensor), Err: err}
	}
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n"), nil
}
