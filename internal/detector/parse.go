package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/apexmetrics/vertical.report/internal/pose"
)

const (
	EventTypeFrame     = "frame"
	EventTypeKeepalive = "keepalive"
	EventTypeAck       = "ack"
	EventTypeUnknown   = "unknown"
)

// ErrNotAFrame reports a line that was valid device output but carried no
// landmark frame (keepalives, command acks, blanks).
var ErrNotAFrame = errors.New("line is not a landmark frame")

// ClassifyLine inspects a device line and returns a simple event type token.
// The detector interleaves JSON frames with plain-text keepalives and
// command acknowledgements on the same stream.
func ClassifyLine(line string) string {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		return EventTypeFrame
	case strings.HasPrefix(trimmed, "OK"):
		return EventTypeAck
	case trimmed == "" || strings.HasPrefix(trimmed, "PING"):
		return EventTypeKeepalive
	default:
		return EventTypeUnknown
	}
}

// ParseFrame parses one device line into a landmark frame. Lines that are
// not frames return ErrNotAFrame; callers monitoring the stream should skip
// those rather than treat them as failures.
func ParseFrame(line string) (pose.LandmarkFrame, error) {
	if ClassifyLine(line) != EventTypeFrame {
		return pose.LandmarkFrame{}, ErrNotAFrame
	}
	var frame pose.LandmarkFrame
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &frame); err != nil {
		return pose.LandmarkFrame{}, fmt.Errorf("malformed frame line: %w", err)
	}
	if len(frame.Landmarks) > pose.NumJoints {
		return pose.LandmarkFrame{}, fmt.Errorf("frame carries %d landmarks, expected at most %d",
			len(frame.Landmarks), pose.NumJoints)
	}
	return frame, nil
}

// EncodeFrame renders a landmark frame as a single device line (without the
// trailing newline). Used by the mock detector and session replay fixtures.
func EncodeFrame(frame pose.LandmarkFrame) ([]byte, error) {
	return json.Marshal(frame)
}
