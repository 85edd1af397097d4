package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// Recorder appends FrameStats rows to a CSV file every interval frames. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	file          *os.File
	interval      int
	headerWritten bool
}

// NewRecorder creates the output directory and the CSV file. It returns nil when dir is
// empty, which disables telemetry.
//
// Parameters:
//   - dir: output directory
//   - name: CSV file name inside dir
//   - interval: frames between rows (values < 1 record every frame)
//
// Returns:
//   - *Recorder: the recorder, or nil if disabled
//   - error: directory or file creation failure
func NewRecorder(dir, name string, interval int) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &Recorder{file: f, interval: max(interval, 1)}, nil
}

// Due reports whether the given frame should be recorded.
func (r *Recorder) Due(frame int) bool {
	return r != nil && frame%r.interval == 0
}

// Write appends one row, emitting the header before the first row.
//
// Parameters:
//   - stats: the row to append
//
// Returns:
//   - error: write failure
func (r *Recorder) Write(stats FrameStats) error {
	if r == nil {
		return nil
	}
	records := []FrameStats{stats}
	if !r.headerWritten {
		if err := gocsv.Marshal(records, r.file); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.file); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// Close flushes and closes the CSV file.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.file.Close()
}
