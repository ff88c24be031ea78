package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrFloat64(v float64) *float64 { return &v }

func TestComputeScale(t *testing.T) {
	t.Parallel()

	baseline := Baseline{HipYPx: 500, BodyHeightPx: 800}

	t.Run("without eye-to-vertex the band straddles the point", func(t *testing.T) {
		t.Parallel()
		s, err := ComputeScale(baseline, Anthropometry{HeightCm: 180}, 0.05)
		require.NoError(t, err)

		assert.False(t, s.IsPrecise)
		assert.InDelta(t, 0.225, s.PxToCm, 1e-9) // 180 / 800
		assert.Less(t, s.LowerPxToCm, s.PxToCm)
		assert.Greater(t, s.UpperPxToCm, s.PxToCm)
		assert.InDelta(t, 0.225*0.95, s.LowerPxToCm, 1e-9)
		assert.InDelta(t, 0.225*1.05, s.UpperPxToCm, 1e-9)
	})

	t.Run("with eye-to-vertex the bounds collapse to the point", func(t *testing.T) {
		t.Parallel()
		a := Anthropometry{HeightCm: 180, EyeToHeadVertexCm: ptrFloat64(12)}
		s, err := ComputeScale(baseline, a, 0.05)
		require.NoError(t, err)

		assert.True(t, s.IsPrecise)
		assert.InDelta(t, 168.0/800.0, s.PxToCm, 1e-9)
		assert.Equal(t, s.PxToCm, s.LowerPxToCm)
		assert.Equal(t, s.PxToCm, s.UpperPxToCm)
	})

	t.Run("nonsensical eye-to-vertex falls back to the bounded model", func(t *testing.T) {
		t.Parallel()
		a := Anthropometry{HeightCm: 180, EyeToHeadVertexCm: ptrFloat64(200)}
		s, err := ComputeScale(baseline, a, 0.05)
		require.NoError(t, err)
		assert.False(t, s.IsPrecise)
		assert.InDelta(t, 0.225, s.PxToCm, 1e-9)
	})

	t.Run("invalid inputs fail", func(t *testing.T) {
		t.Parallel()
		_, err := ComputeScale(Baseline{BodyHeightPx: 0}, Anthropometry{HeightCm: 180}, 0.05)
		assert.Error(t, err)

		_, err = ComputeScale(baseline, Anthropometry{HeightCm: 0}, 0.05)
		assert.Error(t, err)
	})
}
