package detector

import (
	"bytes"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/apexmetrics/vertical.report/internal/pose"
)

// MockDetectorPort implements PosePorter for development without hardware.
type MockDetectorPort struct {
	io.Reader

	mu       sync.Mutex
	commands bytes.Buffer
	closed   bool
}

func (m *MockDetectorPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("detector port closed")
	}
	return m.commands.Write(p)
}

func (m *MockDetectorPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Commands returns everything written to the mock port.
func (m *MockDetectorPort) Commands() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.commands.Bytes()...)
}

// NewMockDetectorMux creates a DetectorMux backed by a synthetic detector
// that loops a canned session at 30fps: the subject walks in, stands still
// long enough to calibrate, performs a jump, and lands.
func NewMockDetectorMux() *DetectorMux[*MockDetectorPort] {
	r, w := io.Pipe()
	mockPort := &MockDetectorPort{Reader: r}

	frames := SyntheticJumpSession()

	go func() {
		defer w.Close()
		ticker := time.NewTicker(33 * time.Millisecond)
		defer ticker.Stop()
		i := 0
		for range ticker.C {
			line, err := EncodeFrame(frames[i%len(frames)])
			if err != nil {
				return
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return
			}
			i++
		}
	}()

	return NewDetectorMux(mockPort)
}

// SyntheticJumpSession generates the landmark frames for one looping mock
// session: 15 absent frames, 60 standing frames, a 30-frame parabolic jump,
// and 30 more standing frames. Geometry assumes a 720x1280 portrait camera.
func SyntheticJumpSession() []pose.LandmarkFrame {
	var frames []pose.LandmarkFrame

	for i := 0; i < 15; i++ {
		frames = append(frames, pose.LandmarkFrame{})
	}
	for i := 0; i < 60; i++ {
		frames = append(frames, standingMockFrame(0))
	}
	for i := 0; i < 30; i++ {
		// Parabolic flight peaking at 120px of hip rise mid-jump.
		t := float64(i) / 29.0
		rise := 120.0 * (1.0 - math.Pow(2*t-1, 2))
		frames = append(frames, standingMockFrame(rise))
	}
	for i := 0; i < 30; i++ {
		frames = append(frames, standingMockFrame(0))
	}

	return frames
}

// standingMockFrame returns a plausible standing pose with the hips lifted
// by rise pixels. Landmarks cover the joints the engine consumes.
func standingMockFrame(rise float64) pose.LandmarkFrame {
	const conf = 0.92
	mk := func(id int, x, y float64) pose.Landmark {
		return pose.Landmark{JointID: id, X: x, Y: y - rise, Confidence: conf}
	}
	return pose.LandmarkFrame{Landmarks: []pose.Landmark{
		mk(pose.Nose, 360, 240),
		mk(pose.LeftEye, 345, 230),
		mk(pose.RightEye, 375, 230),
		mk(pose.LeftShoulder, 300, 370),
		mk(pose.RightShoulder, 420, 370),
		mk(pose.LeftHip, 320, 640),
		mk(pose.RightHip, 400, 640),
		mk(pose.LeftKnee, 325, 850),
		mk(pose.RightKnee, 395, 850),
		mk(pose.LeftAnkle, 330, 1040),
		mk(pose.RightAnkle, 390, 1040),
		// Heels stay planted while rise is small; the engine only needs
		// them for body extent, so lifting them with the hips is fine.
		mk(pose.LeftHeel, 328, 1060),
		mk(pose.RightHeel, 392, 1060),
	}}
}

// TestablePort implements PosePorter with scripted reads and captured
// writes for exercising the mux in tests.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port.
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set.
	ReadError error

	// WriteError is returned by the next Write call if set.
	WriteError error

	// Closed indicates whether Close was called.
	Closed bool

	// BlockReads causes Read to block until data is added or Close is called.
	BlockReads bool

	readCond *sync.Cond
}

// NewTestablePort creates a new TestablePort.
func NewTestablePort() *TestablePort {
	tp := &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tp.readCond = sync.NewCond(&tp.mu)
	return tp
}

func (t *TestablePort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("detector port closed")
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	if t.BlockReads && t.ReadBuffer.Len() == 0 {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, io.EOF
		}
	}
	return t.ReadBuffer.Read(p)
}

func (t *TestablePort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("detector port closed")
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	return t.WriteBuffer.Write(p)
}

func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	t.readCond.Broadcast()
	return nil
}

// AddReadData appends data to be returned by subsequent Read calls.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Write(data)
	t.readCond.Signal()
}

// WrittenData returns all data written to the port.
func (t *TestablePort) WrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.WriteBuffer.Bytes()...)
}
