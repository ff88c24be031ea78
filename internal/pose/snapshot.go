package pose

import "time"

// Positioning warnings shown to the athlete while framing the shot.
const (
	WarnTooClose       = "subject too close to the camera"
	WarnTooFar         = "subject too far from the camera"
	WarnNotFullyFramed = "body not fully framed; adjust the camera"
)

// DebugSnapshot is a read-only projection of the engine's state after one
// processed frame. It is a value: multiple readers may hold the same
// snapshot concurrently.
type DebugSnapshot struct {
	Phase      Phase     `json:"phase"`
	FrameCount int64     `json:"frame_count"`
	Timestamp  time.Time `json:"timestamp"`

	// Live per-frame values
	PoseDetected   bool    `json:"pose_detected"`
	LandmarkCount  int     `json:"landmark_count"`
	MeanConfidence float64 `json:"mean_confidence"`
	CurrentHipYPx  float64 `json:"current_hip_y_px"`
	BodyHeightPx   float64 `json:"body_height_px"`

	// Stability / calibration progress
	StabilityProgress   float64 `json:"stability_progress"`
	StabilityMovementPx float64 `json:"stability_movement_px"`
	CalibrationFrames   int     `json:"calibration_frames"`
	CalibrationNeeded   int     `json:"calibration_needed"`

	// Calibrated state (zero until Active)
	BaselineHipYPx float64 `json:"baseline_hip_y_px"`
	MovementPx     float64 `json:"movement_px"`
	PxToCm         float64 `json:"px_to_cm"`
	ScaleIsPrecise bool    `json:"scale_is_precise"`

	// Caller-visible conditions (never hard failures)
	DegenerateCalibration bool   `json:"degenerate_calibration"`
	AnthropometrySet      bool   `json:"anthropometry_set"`
	PositionWarning       string `json:"position_warning,omitempty"`

	Measurement MeasurementState `json:"measurement"`
}

// positionWarning compares the detected body extent against the configured
// frame dimensions and margins. Returns "" when the framing looks fine.
func (c EngineConfig) positionWarning(topY, bottomY float64) string {
	if c.FrameHeightPx <= 0 {
		return ""
	}
	margin := c.EdgeMarginFraction * c.FrameHeightPx
	if topY < margin || bottomY > c.FrameHeightPx-margin {
		return WarnNotFullyFramed
	}
	frac := (bottomY - topY) / c.FrameHeightPx
	if c.MaxBodyHeightFraction > 0 && frac > c.MaxBodyHeightFraction {
		return WarnTooClose
	}
	if frac < c.MinBodyHeightFraction {
		return WarnTooFar
	}
	return ""
}
