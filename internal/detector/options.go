package detector

import "go.bug.st/serial"

// PortOptions carries the serial parameters for a pose-detector link.
// Zero-valued fields are filled in by Normalize.
type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits serial.StopBits
	Parity   serial.Parity
}

// DefaultPortOptions returns the detector's factory settings (115200 8N1).
func DefaultPortOptions() PortOptions {
	return PortOptions{
		BaudRate: 115200,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
}

// Normalize fills in defaults for any unset field.
func (o PortOptions) Normalize() PortOptions {
	d := DefaultPortOptions()
	if o.BaudRate == 0 {
		o.BaudRate = d.BaudRate
	}
	if o.DataBits == 0 {
		o.DataBits = d.DataBits
	}
	return o
}

func (o PortOptions) mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: o.DataBits,
		StopBits: o.StopBits,
		Parity:   o.Parity,
	}
}
