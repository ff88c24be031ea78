package pose

import "github.com/apexmetrics/vertical.report/internal/config"

// EngineConfig holds the resolved tuning constants of the estimation engine.
type EngineConfig struct {
	StabilityWindow     int     // samples in the stability ring buffer
	MovementThresholdPx float64 // max hip-Y deviation to count as still
	MinJointConfidence  float64 // detection confidence floor per joint

	CalibrationFrames        int     // stable frames required to finalize a baseline
	MinBodyHeightPx          float64 // baselines below this are degenerate
	ScaleUncertaintyFraction float64 // symmetric band when eye-to-vertex is unknown

	FrameWidthPx          float64
	FrameHeightPx         float64
	EdgeMarginFraction    float64
	MinBodyHeightFraction float64
	MaxBodyHeightFraction float64
}

// DefaultEngineConfig returns the engine defaults (equivalent to an empty
// tuning file).
func DefaultEngineConfig() EngineConfig {
	return EngineConfigFromTuning(config.EmptyTuningConfig())
}

// EngineConfigFromTuning resolves a TuningConfig into concrete engine values.
func EngineConfigFromTuning(t *config.TuningConfig) EngineConfig {
	return EngineConfig{
		StabilityWindow:          t.GetStabilityWindow(),
		MovementThresholdPx:      t.GetMovementThresholdPx(),
		MinJointConfidence:       t.GetMinJointConfidence(),
		CalibrationFrames:        t.GetCalibrationFrames(),
		MinBodyHeightPx:          t.GetMinBodyHeightPx(),
		ScaleUncertaintyFraction: t.GetScaleUncertaintyFraction(),
		FrameWidthPx:             t.GetFrameWidthPx(),
		FrameHeightPx:            t.GetFrameHeightPx(),
		EdgeMarginFraction:       t.GetEdgeMarginFraction(),
		MinBodyHeightFraction:    t.GetMinBodyHeightFraction(),
		MaxBodyHeightFraction:    t.GetMaxBodyHeightFraction(),
	}
}
