// Package detector provides an abstraction over the external pose-detector
// device: a line-oriented link that emits one landmark frame per line, with
// the ability for multiple clients to subscribe to frames and send
// configuration commands to a single device.
package detector

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

var ErrWriteFailed = fmt.Errorf("failed to write to detector port")

// DetectorMux multiplexes a single pose-detector link to multiple
// subscribers. Each subscriber receives raw device lines; parsing is the
// subscriber's concern so that diagnostic clients can observe keepalives too.
type DetectorMux[T PosePorter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// DetectorMuxInterface defines the interface for the DetectorMux type.
type DetectorMuxInterface interface {
	// Subscribe creates a new channel for receiving line events from the
	// detector. The channel ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command to the detector.
	SendCommand(string) error
	// Monitor reads lines from the detector and fans them out to
	// subscribers until the context is cancelled.
	Monitor(context.Context) error
	// Initialize pushes the default output configuration to the device.
	Initialize() error
	// Close closes all subscribed channels and the underlying port.
	Close() error
}

// NewDetectorMux creates a DetectorMux backed by the given port.
func NewDetectorMux[T PosePorter](port T) *DetectorMux[T] {
	return &DetectorMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (m *DetectorMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the detector mux.
func (m *DetectorMux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Initialize syncs the device clock and selects the landmark output mode so
// that lines arrive in the format the parser expects.
func (m *DetectorMux[T]) Initialize() error {
	command := fmt.Sprintf("C=%d", time.Now().Unix())
	if err := m.SendCommand(command); err != nil {
		return fmt.Errorf("failed to synchronize clock: %w", err)
	}

	for _, command := range []string{
		"MODEL=FULL",  // full-body landmark model (33 joints)
		"OUTPUT=JSON", // one JSON frame per line
		"COORDS=PX",   // pixel coordinates, not normalized
		"FPS=30",      // target detection rate
	} {
		if err := m.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send start command %q: %w", command, err)
		}
	}

	return nil
}

// SendCommand sends a command line to the detector.
func (m *DetectorMux[T]) SendCommand(command string) error {
	m.commandMu.Lock()
	defer m.commandMu.Unlock()
	if !bytes.HasSuffix([]byte(command), []byte("\n")) {
		command += "\n"
	}
	n, err := m.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor monitors the detector for frame lines and sends them to
// subscribers. Slow subscribers are skipped rather than blocking the loop;
// the source is a live camera, so a dropped frame costs nothing.
func (m *DetectorMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(m.port)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024) // frames carry 33 joints per line

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking scan.Scan runs in its own goroutine so it cannot
	// interfere with context cancellation in the outer loop.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				if err := scan.Err(); err != nil {
					return err
				}
				return nil
			}

			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- line:
				default:
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

// Close closes all subscribed channels and the underlying port.
func (m *DetectorMux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	m.subscriberMu.Unlock()

	return m.port.Close()
}
