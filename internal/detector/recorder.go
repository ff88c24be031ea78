package detector

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/apexmetrics/vertical.report/internal/security"
)

// FrameRecorder appends raw detector frame lines to a file, one per line,
// in the format the replay tool consumes. Non-frame traffic (keepalives,
// command acks) should not be recorded.
type FrameRecorder struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// NewFrameRecorder opens (or creates) the recording file at path. The path
// is validated against traversal outside the working or temp directory
// since it typically arrives from a command-line flag.
func NewFrameRecorder(path string) (*FrameRecorder, error) {
	if err := security.ValidateExportPath(path); err != nil {
		return nil, fmt.Errorf("invalid recording path: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording file: %w", err)
	}
	return &FrameRecorder{f: f, w: bufio.NewWriter(f)}, nil
}

// Record appends one raw detector line. Lines that do not classify as
// frames are silently skipped so callers can feed the full link traffic.
func (r *FrameRecorder) Record(line string) error {
	if ClassifyLine(line) != EventTypeFrame {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return os.ErrClosed
	}
	if _, err := r.w.WriteString(line); err != nil {
		return err
	}
	return r.w.WriteByte('\n')
}

// Close flushes buffered lines and closes the file. Safe to call twice.
func (r *FrameRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.w.Flush(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}
