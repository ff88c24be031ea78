package detector

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// scriptedPort implements PosePorter for testing DetectorMux operations.
type scriptedPort struct {
	readData    []byte
	readIndex   int
	writtenData strings.Builder
	writeErr    error
	closed      bool
	mu          sync.Mutex
}

func newScriptedPort(data string) *scriptedPort {
	return &scriptedPort{readData: []byte(data)}
}

func (p *scriptedPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	if p.readIndex >= len(p.readData) {
		// Block briefly to simulate waiting for more data
		time.Sleep(10 * time.Millisecond)
		if p.closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(buf, p.readData[p.readIndex:])
	p.readIndex += n
	return n, nil
}

func (p *scriptedPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.writtenData.Write(data)
}

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *scriptedPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writtenData.String()
}

func TestNewDetectorMux(t *testing.T) {
	port := newScriptedPort("")
	mux := NewDetectorMux(port)

	if mux == nil {
		t.Fatal("NewDetectorMux returned nil")
	}
	if mux.subscribers == nil {
		t.Error("subscribers map not initialized")
	}
}

func TestDetectorMux_Subscribe(t *testing.T) {
	mux := NewDetectorMux(newScriptedPort(""))

	id1, ch1 := mux.Subscribe()
	id2, ch2 := mux.Subscribe()

	if id1 == "" || id2 == "" {
		t.Error("subscription returned empty ID")
	}
	if id1 == id2 {
		t.Error("subscription IDs should be unique")
	}
	if ch1 == nil || ch2 == nil {
		t.Error("subscription returned nil channel")
	}

	mux.subscriberMu.Lock()
	if len(mux.subscribers) != 2 {
		t.Errorf("expected 2 subscribers, got %d", len(mux.subscribers))
	}
	mux.subscriberMu.Unlock()
}

func TestDetectorMux_Unsubscribe(t *testing.T) {
	mux := NewDetectorMux(newScriptedPort(""))

	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}

	mux.subscriberMu.Lock()
	if len(mux.subscribers) != 0 {
		t.Errorf("expected 0 subscribers, got %d", len(mux.subscribers))
	}
	mux.subscriberMu.Unlock()

	// Unknown IDs must not panic
	mux.Unsubscribe("non-existent-id")
}

func TestDetectorMux_SendCommand(t *testing.T) {
	port := newScriptedPort("")
	mux := NewDetectorMux(port)

	if err := mux.SendCommand("FPS=30"); err != nil {
		t.Errorf("SendCommand returned error: %v", err)
	}
	if err := mux.SendCommand("OUTPUT=JSON\n"); err != nil {
		t.Errorf("SendCommand returned error: %v", err)
	}

	written := port.Written()
	if !strings.Contains(written, "FPS=30\n") {
		t.Error("expected FPS command with newline to be written")
	}
	if strings.Contains(written, "OUTPUT=JSON\n\n") {
		t.Error("trailing newline should not be doubled")
	}
}

func TestDetectorMux_SendCommand_WriteError(t *testing.T) {
	port := newScriptedPort("")
	port.writeErr = errors.New("write failed")
	mux := NewDetectorMux(port)

	if err := mux.SendCommand("FPS=30"); err == nil {
		t.Error("expected error when write fails")
	}
}

func TestDetectorMux_SendCommand_PartialWrite(t *testing.T) {
	mux := NewDetectorMux(&partialWritePort{maxWrite: 1})

	err := mux.SendCommand("FPS=30")
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("expected ErrWriteFailed for partial write, got %v", err)
	}
}

func TestDetectorMux_Initialize(t *testing.T) {
	port := newScriptedPort("")
	mux := NewDetectorMux(port)

	if err := mux.Initialize(); err != nil {
		t.Errorf("Initialize returned error: %v", err)
	}

	written := port.Written()
	for _, cmd := range []string{"C=", "MODEL=FULL", "OUTPUT=JSON", "COORDS=PX", "FPS=30"} {
		if !strings.Contains(written, cmd) {
			t.Errorf("expected command %s to be written during initialization", cmd)
		}
	}
}

func TestDetectorMux_Monitor(t *testing.T) {
	port := newScriptedPort("line1\nline2\nline3\n")
	mux := NewDetectorMux(port)

	_, ch := mux.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- mux.Monitor(ctx)
	}()

	var received []string
	timeout := time.After(300 * time.Millisecond)
loop:
	for {
		select {
		case line, ok := <-ch:
			if !ok {
				break loop
			}
			received = append(received, line)
			if len(received) == 3 {
				break loop
			}
		case <-timeout:
			break loop
		}
	}

	if len(received) != 3 {
		t.Errorf("expected 3 lines, got %d: %v", len(received), received)
	}

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			t.Logf("Monitor returned: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("Monitor did not exit after context deadline")
	}
}

func TestDetectorMux_Monitor_CloseDuringRead(t *testing.T) {
	port := newScriptedPort("line1\nline2\nline3\nline4\n")
	mux := NewDetectorMux(port)

	_, ch := mux.Subscribe()

	done := make(chan error, 1)
	go func() {
		done <- mux.Monitor(context.Background())
	}()

	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for first line")
	}

	if err := mux.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Error("Monitor did not exit after Close")
	}
}

func TestDetectorMux_Close(t *testing.T) {
	port := newScriptedPort("")
	mux := NewDetectorMux(port)

	id, ch1 := mux.Subscribe()
	_, ch2 := mux.Subscribe()

	if err := mux.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}

	if _, ok := <-ch1; ok {
		t.Error("expected channel 1 to be closed")
	}
	if _, ok := <-ch2; ok {
		t.Error("expected channel 2 to be closed")
	}
	if !port.closed {
		t.Error("expected underlying port to be closed")
	}

	// Unsubscribing after close must be safe
	mux.Unsubscribe(id)
}

func TestRandomID(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := randomID()
		if len(id) != 16 { // 8 bytes hex encoded
			t.Errorf("expected ID length 16, got %d", len(id))
		}
		if ids[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		ids[id] = true
	}
}

// partialWritePort only writes a limited number of bytes per call.
type partialWritePort struct {
	maxWrite int
	written  []byte
	closed   bool
}

func (p *partialWritePort) Read(buf []byte) (int, error) { return 0, io.EOF }

func (p *partialWritePort) Write(data []byte) (int, error) {
	if p.maxWrite > 0 && len(data) > p.maxWrite {
		p.written = append(p.written, data[:p.maxWrite]...)
		return p.maxWrite, nil
	}
	p.written = append(p.written, data...)
	return len(data), nil
}

func (p *partialWritePort) Close() error {
	p.closed = true
	return nil
}
