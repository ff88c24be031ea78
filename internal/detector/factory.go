package detector

import (
	"fmt"

	"go.bug.st/serial"
)

// NewRealDetectorMux opens the serial device at path and wraps it in a
// DetectorMux. The caller owns the mux and must Close it.
func NewRealDetectorMux(path string, opts PortOptions) (*DetectorMux[serial.Port], error) {
	opts = opts.Normalize()
	port, err := serial.Open(path, opts.mode())
	if err != nil {
		return nil, fmt.Errorf("failed to open detector port %s: %w", path, err)
	}
	return NewDetectorMux(port), nil
}
