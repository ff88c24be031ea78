package pose

import "math"

// Body joint indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumJoints      = 33
)

// headJoints and footJoints bound the detected body extent. The head group
// sits on the eye line rather than the head vertex; the scale converter
// accounts for that offset.
var (
	headJoints = []int{Nose, LeftEye, RightEye, LeftEar, RightEar}
	footJoints = []int{LeftAnkle, RightAnkle, LeftHeel, RightHeel}
)

// Landmark is a single detected body joint in image pixel space. Y grows
// downward, matching camera coordinates.
type Landmark struct {
	JointID    int     `json:"joint_id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// LandmarkFrame is one detection result from the external pose detector.
// Frames are values with the lifetime of a single ProcessFrame call; the
// engine never retains them.
type LandmarkFrame struct {
	Landmarks []Landmark `json:"landmarks"`
}

// Lookup returns the landmark for a joint ID.
func (f LandmarkFrame) Lookup(jointID int) (Landmark, bool) {
	for _, lm := range f.Landmarks {
		if lm.JointID == jointID {
			return lm, true
		}
	}
	return Landmark{}, false
}

// Count returns the number of landmarks present in the frame.
func (f LandmarkFrame) Count() int { return len(f.Landmarks) }

// MeanConfidence returns the mean detection confidence across all landmarks,
// or 0 for an empty frame.
func (f LandmarkFrame) MeanConfidence() float64 {
	if len(f.Landmarks) == 0 {
		return 0
	}
	var sum float64
	for _, lm := range f.Landmarks {
		sum += lm.Confidence
	}
	return sum / float64(len(f.Landmarks))
}

// HipMidpoint returns the vertical midpoint of the two hip landmarks and the
// aggregate confidence of the pair (the minimum of the two, so one occluded
// hip degrades the whole reading). ok is false when either hip is absent.
func (f LandmarkFrame) HipMidpoint() (y, confidence float64, ok bool) {
	left, lok := f.Lookup(LeftHip)
	right, rok := f.Lookup(RightHip)
	if !lok || !rok {
		return 0, 0, false
	}
	return (left.Y + right.Y) / 2, math.Min(left.Confidence, right.Confidence), true
}

// BodyExtent returns the vertical span of the detected body: the topmost head
// joint and the bottommost ankle/heel joint at or above minConfidence. ok is
// false when either group has no usable joint.
func (f LandmarkFrame) BodyExtent(minConfidence float64) (topY, bottomY float64, ok bool) {
	topY, topOK := f.extremeY(headJoints, minConfidence, false)
	bottomY, bottomOK := f.extremeY(footJoints, minConfidence, true)
	if !topOK || !bottomOK || bottomY <= topY {
		return 0, 0, false
	}
	return topY, bottomY, true
}

// BodyHeightPx returns the body height in pixels derived from BodyExtent.
func (f LandmarkFrame) BodyHeightPx(minConfidence float64) (float64, bool) {
	top, bottom, ok := f.BodyExtent(minConfidence)
	if !ok {
		return 0, false
	}
	return bottom - top, true
}

func (f LandmarkFrame) extremeY(joints []int, minConfidence float64, wantMax bool) (float64, bool) {
	var best float64
	found := false
	for _, id := range joints {
		lm, ok := f.Lookup(id)
		if !ok || lm.Confidence < minConfidence {
			continue
		}
		if !found || (wantMax && lm.Y > best) || (!wantMax && lm.Y < best) {
			best = lm.Y
			found = true
		}
	}
	return best, found
}
