package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationAccumulator(t *testing.T) {
	t.Parallel()

	t.Run("completes after exactly framesNeeded frames", func(t *testing.T) {
		t.Parallel()
		a := NewCalibrationAccumulator(3, 50.0)

		st := a.Accept(500, 800)
		assert.Equal(t, CalibrationStatus{FramesAccumulated: 1, FramesNeeded: 3}, st)

		a.Accept(502, 798)
		st = a.Accept(498, 802)
		assert.True(t, st.IsComplete)
		assert.Equal(t, 3, st.FramesAccumulated)
	})

	t.Run("finalize averages the accumulated frames", func(t *testing.T) {
		t.Parallel()
		a := NewCalibrationAccumulator(2, 50.0)
		a.Accept(490, 810)
		a.Accept(510, 790)

		b, err := a.Finalize()
		require.NoError(t, err)
		assert.InDelta(t, 500.0, b.HipYPx, 1e-9)
		assert.InDelta(t, 800.0, b.BodyHeightPx, 1e-9)
	})

	t.Run("finalize before completion fails", func(t *testing.T) {
		t.Parallel()
		a := NewCalibrationAccumulator(3, 50.0)
		a.Accept(500, 800)
		_, err := a.Finalize()
		assert.Error(t, err)
	})

	t.Run("extra frames after completion are ignored", func(t *testing.T) {
		t.Parallel()
		a := NewCalibrationAccumulator(2, 50.0)
		a.Accept(500, 800)
		a.Accept(500, 800)
		st := a.Accept(9999, 9999)
		assert.Equal(t, 2, st.FramesAccumulated)

		b, err := a.Finalize()
		require.NoError(t, err)
		assert.InDelta(t, 500.0, b.HipYPx, 1e-9)
	})

	t.Run("near-zero body height is degenerate", func(t *testing.T) {
		t.Parallel()
		a := NewCalibrationAccumulator(2, 50.0)
		a.Accept(500, 5)
		a.Accept(500, 5)

		_, err := a.Finalize()
		assert.ErrorIs(t, err, ErrDegenerateCalibration)
	})
}
