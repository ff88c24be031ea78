package pose

// MeasurementState is the session's best jump so far, with the scale
// uncertainty carried through as explicit bounds. All fields are
// monotonically non-decreasing across a calibrated session until reset.
type MeasurementState struct {
	MaxHeightCm      float64 `json:"max_height_cm"`
	MaxHeightLowerCm float64 `json:"max_height_lower_cm"`
	MaxHeightUpperCm float64 `json:"max_height_upper_cm"`

	MaxSpikeReachCm      float64 `json:"max_spike_reach_cm"`
	MaxSpikeReachLowerCm float64 `json:"max_spike_reach_lower_cm"`
	MaxSpikeReachUpperCm float64 `json:"max_spike_reach_upper_cm"`
}

// HeightTracker converts per-frame hip displacement into jump height and
// retains the running maximum. Created once per calibration, discarded on
// reset.
type HeightTracker struct {
	baseline Baseline
	scale    ScaleModel
	reachCm  float64 // 0 when the athlete's reach was not supplied

	state MeasurementState
}

// NewHeightTracker creates a tracker over a finalized baseline and scale.
// reachCm is the athlete's heel-to-hand standing reach; pass 0 when unknown
// and the spike-reach figures stay zero.
func NewHeightTracker(b Baseline, s ScaleModel, reachCm float64) *HeightTracker {
	return &HeightTracker{baseline: b, scale: s, reachCm: reachCm}
}

// Update folds one frame's hip-Y into the running maxima. Movement is
// positive when the hip has risen above baseline (pixel Y grows downward).
func (t *HeightTracker) Update(hipYPx float64) MeasurementState {
	rise := t.baseline.HipYPx - hipYPx
	if rise < 0 {
		rise = 0
	}

	if h := rise * t.scale.PxToCm; h > t.state.MaxHeightCm {
		t.state.MaxHeightCm = h
	}
	if h := rise * t.scale.LowerPxToCm; h > t.state.MaxHeightLowerCm {
		t.state.MaxHeightLowerCm = h
	}
	if h := rise * t.scale.UpperPxToCm; h > t.state.MaxHeightUpperCm {
		t.state.MaxHeightUpperCm = h
	}

	if t.reachCm > 0 {
		t.state.MaxSpikeReachCm = t.state.MaxHeightCm + t.reachCm
		t.state.MaxSpikeReachLowerCm = t.state.MaxHeightLowerCm + t.reachCm
		t.state.MaxSpikeReachUpperCm = t.state.MaxHeightUpperCm + t.reachCm
	}
	return t.state
}

// State returns the current measurement without consuming a frame.
func (t *HeightTracker) State() MeasurementState { return t.state }

// MovementPx returns the signed hip displacement from baseline for a frame,
// positive upward. Exposed for the diagnostics snapshot.
func (t *HeightTracker) MovementPx(hipYPx float64) float64 {
	return t.baseline.HipYPx - hipYPx
}
