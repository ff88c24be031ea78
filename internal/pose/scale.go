package pose

import "fmt"

// Anthropometry carries the caller-supplied body measurements. Values are
// validated before they reach the engine; the optional fields are nil when
// the athlete has not been measured for them.
type Anthropometry struct {
	HeightCm          float64  `json:"height_cm"`
	EyeToHeadVertexCm *float64 `json:"eye_to_vertex_cm,omitempty"`
	HeelToHandReachCm *float64 `json:"reach_cm,omitempty"`
}

// ScaleModel converts pixel displacement to centimeters. Computed exactly
// once per calibration cycle; the lower/upper bounds propagate unexpanded
// into every downstream height and reach figure.
type ScaleModel struct {
	PxToCm      float64 `json:"px_to_cm"`
	LowerPxToCm float64 `json:"lower_px_to_cm"`
	UpperPxToCm float64 `json:"upper_px_to_cm"`
	IsPrecise   bool    `json:"is_precise"`
}

// ComputeScale derives the pixel-to-centimeter model from a finalized
// baseline and the athlete's measurements.
//
// The detected landmark extent runs from the eye line to the heels, not the
// head vertex. When EyeToHeadVertexCm is known the real-world span of that
// extent is heightCm minus the offset, and the model is precise: bounds
// collapse to the point estimate. Without it the nominal height is divided
// by the pixel extent as-is and a symmetric fractional band acknowledges the
// per-individual vertex offset.
func ComputeScale(b Baseline, a Anthropometry, uncertaintyFraction float64) (ScaleModel, error) {
	if b.BodyHeightPx <= 0 {
		return ScaleModel{}, fmt.Errorf("invalid baseline body height %.2fpx", b.BodyHeightPx)
	}
	if a.HeightCm <= 0 {
		return ScaleModel{}, fmt.Errorf("invalid athlete height %.2fcm", a.HeightCm)
	}

	if a.EyeToHeadVertexCm != nil {
		span := a.HeightCm - *a.EyeToHeadVertexCm
		if span > 0 {
			px := span / b.BodyHeightPx
			return ScaleModel{PxToCm: px, LowerPxToCm: px, UpperPxToCm: px, IsPrecise: true}, nil
		}
		// Nonsensical offset; fall through to the bounded model.
	}

	if uncertaintyFraction < 0 {
		uncertaintyFraction = 0
	}
	px := a.HeightCm / b.BodyHeightPx
	return ScaleModel{
		PxToCm:      px,
		LowerPxToCm: px * (1 - uncertaintyFraction),
		UpperPxToCm: px * (1 + uncertaintyFraction),
		IsPrecise:   false,
	}, nil
}
