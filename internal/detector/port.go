package detector

import "io"

// PosePorter specifies the interface of a pose-detector link: a serial
// device (or mock) that emits one landmark frame per line and accepts
// configuration commands.
type PosePorter interface {
	io.ReadWriter
	Close() error
}
