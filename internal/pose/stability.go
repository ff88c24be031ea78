package pose

import "gonum.org/v1/gonum/stat"

// StabilityStatus reports the detector's view of the subject after one sample.
type StabilityStatus struct {
	// IsStable is true when a full window of samples sits within the
	// movement threshold.
	IsStable bool
	// Progress is the fraction of the window covered by the current
	// low-movement streak, saturating at 1.
	Progress float64
	// MovementPx is the max pairwise vertical deviation across the
	// buffered samples.
	MovementPx float64
	// StdDevPx is the standard deviation of the buffered samples,
	// exposed for diagnostics only.
	StdDevPx float64
}

// StabilityDetector judges whether a subject is still enough to calibrate by
// watching a sliding window of recent hip-Y samples. It owns its ring buffer
// exclusively and has no external effects.
type StabilityDetector struct {
	samples  []float64
	capacity int
	head     int
	size     int

	// streak counts consecutive accepted samples whose window stayed
	// within the movement threshold.
	streak int

	movementThresholdPx float64
	minConfidence       float64
}

// NewStabilityDetector creates a detector over a window covering roughly 1-2
// seconds of frames. Samples below minConfidence do not advance the window
// and zero the accumulated progress.
func NewStabilityDetector(window int, movementThresholdPx, minConfidence float64) *StabilityDetector {
	if window < 2 {
		window = 2
	}
	return &StabilityDetector{
		samples:             make([]float64, window),
		capacity:            window,
		movementThresholdPx: movementThresholdPx,
		minConfidence:       minConfidence,
	}
}

// Observe feeds one hip-Y sample with its aggregate confidence. An occluded
// or absent subject is reported as not stable with zero progress, never as an
// error.
func (d *StabilityDetector) Observe(hipYPx, confidence float64) StabilityStatus {
	if confidence < d.minConfidence {
		d.streak = 0
		return d.status()
	}

	d.samples[d.head] = hipYPx
	d.head = (d.head + 1) % d.capacity
	if d.size < d.capacity {
		d.size++
	}

	if d.movement() <= d.movementThresholdPx {
		if d.streak < d.capacity {
			d.streak++
		}
	} else {
		d.streak = 0
	}
	return d.status()
}

// Reset clears the window and any accumulated progress.
func (d *StabilityDetector) Reset() {
	d.head = 0
	d.size = 0
	d.streak = 0
}

// Status reports the current state without consuming a sample.
func (d *StabilityDetector) Status() StabilityStatus { return d.status() }

func (d *StabilityDetector) status() StabilityStatus {
	progress := float64(d.streak) / float64(d.capacity)
	if progress > 1 {
		progress = 1
	}
	return StabilityStatus{
		IsStable:   d.size == d.capacity && d.streak >= d.capacity,
		Progress:   progress,
		MovementPx: d.movement(),
		StdDevPx:   d.stddev(),
	}
}

// movement is the max pairwise deviation over the filled window, which for a
// scalar series is simply max-min.
func (d *StabilityDetector) movement() float64 {
	if d.size == 0 {
		return 0
	}
	lo, hi := d.samples[0], d.samples[0]
	for i := 1; i < d.size; i++ {
		v := d.samples[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

func (d *StabilityDetector) stddev() float64 {
	if d.size < 2 {
		return 0
	}
	return stat.StdDev(d.samples[:d.size], nil)
}
