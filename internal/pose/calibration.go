package pose

import "errors"

// ErrDegenerateCalibration is returned when the accumulated body height is
// too small to trust (subject only partially visible). Callers treat it as
// "keep waiting", not as a failure.
var ErrDegenerateCalibration = errors.New("degenerate calibration: measured body height too small")

// Baseline is the calibrated resting pose: mean hip-Y and mean body height in
// pixels over the calibration window. Immutable once finalized.
type Baseline struct {
	HipYPx       float64 `json:"hip_y_px"`
	BodyHeightPx float64 `json:"body_height_px"`
}

// CalibrationStatus reports accumulation progress.
type CalibrationStatus struct {
	FramesAccumulated int  `json:"frames_accumulated"`
	FramesNeeded      int  `json:"frames_needed"`
	IsComplete        bool `json:"is_complete"`
}

// CalibrationAccumulator collects running sums of hip-Y and body height over
// a fixed number of consecutive stable frames. Partial progress never carries
// across instability: the engine swaps in a fresh accumulator instead of
// rewinding this one.
type CalibrationAccumulator struct {
	sumHipYPx       float64
	sumBodyHeightPx float64
	frames          int

	framesNeeded    int
	minBodyHeightPx float64
}

// NewCalibrationAccumulator creates an accumulator that finalizes after
// framesNeeded stable frames. Baselines whose mean body height falls below
// minBodyHeightPx are rejected as degenerate.
func NewCalibrationAccumulator(framesNeeded int, minBodyHeightPx float64) *CalibrationAccumulator {
	if framesNeeded < 1 {
		framesNeeded = 1
	}
	return &CalibrationAccumulator{
		framesNeeded:    framesNeeded,
		minBodyHeightPx: minBodyHeightPx,
	}
}

// Accept folds one stable frame into the running means. Calls after
// completion are ignored.
func (a *CalibrationAccumulator) Accept(hipYPx, bodyHeightPx float64) CalibrationStatus {
	if a.frames < a.framesNeeded {
		a.sumHipYPx += hipYPx
		a.sumBodyHeightPx += bodyHeightPx
		a.frames++
	}
	return a.Status()
}

// Status reports progress without consuming a frame.
func (a *CalibrationAccumulator) Status() CalibrationStatus {
	return CalibrationStatus{
		FramesAccumulated: a.frames,
		FramesNeeded:      a.framesNeeded,
		IsComplete:        a.frames >= a.framesNeeded,
	}
}

// Finalize produces the Baseline once accumulation is complete. It returns
// ErrDegenerateCalibration when the mean body height is below the configured
// floor, in which case the caller should discard this accumulator and keep
// waiting.
func (a *CalibrationAccumulator) Finalize() (Baseline, error) {
	if a.frames < a.framesNeeded {
		return Baseline{}, errors.New("calibration incomplete")
	}
	b := Baseline{
		HipYPx:       a.sumHipYPx / float64(a.frames),
		BodyHeightPx: a.sumBodyHeightPx / float64(a.frames),
	}
	if b.BodyHeightPx < a.minBodyHeightPx {
		return Baseline{}, ErrDegenerateCalibration
	}
	return b, nil
}
