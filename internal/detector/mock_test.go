package detector

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockDetectorMux_EmitsParsableFrames(t *testing.T) {
	mux := NewMockDetectorMux()
	defer mux.Close()

	_, ch := mux.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go mux.Monitor(ctx)

	select {
	case line := <-ch:
		frame, err := ParseFrame(line)
		// The first mock frames carry no pose but must still parse.
		require.NoError(t, err)
		assert.LessOrEqual(t, frame.Count(), 33)
	case <-ctx.Done():
		t.Fatal("timeout waiting for mock frame")
	}
}

func TestMockDetectorPort_CapturesCommands(t *testing.T) {
	t.Parallel()

	port := &MockDetectorPort{Reader: strings.NewReader("")}
	mux := NewDetectorMux(port)

	require.NoError(t, mux.Initialize())
	assert.Contains(t, string(port.Commands()), "MODEL=FULL\n")

	require.NoError(t, port.Close())
	_, err := port.Write([]byte("FPS=30\n"))
	assert.Error(t, err)
}

func TestTestablePort_BlockingRead(t *testing.T) {
	t.Parallel()

	port := NewTestablePort()
	port.BlockReads = true

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 16)
		n, err := port.Read(buf)
		assert.NoError(t, err)
		assert.Equal(t, "hip", string(buf[:n]))
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	port.AddReadData([]byte("hip"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked read never returned")
	}
}
