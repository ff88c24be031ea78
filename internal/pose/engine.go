// Package pose implements the pose-to-height estimation engine: a stateful
// pipeline that calibrates a pixel-to-centimeter scale from a subject
// standing still, then tracks vertical hip displacement to estimate standing
// vertical-jump height with an explicit confidence interval.
package pose

import (
	"errors"
	"sync"

	"github.com/apexmetrics/vertical.report/internal/timeutil"
)

// Phase is the lifecycle state of the engine. Exactly one phase holds at any
// time; there is no terminal phase.
type Phase string

const (
	// PhaseSearching: no usable pose; landmarks absent or low confidence.
	PhaseSearching Phase = "searching"
	// PhaseStabilizing: pose present, stability progress below 1.
	PhaseStabilizing Phase = "stabilizing"
	// PhaseCalibrating: subject still, baseline accumulating. Falls back
	// to stabilizing if stillness is lost.
	PhaseCalibrating Phase = "calibrating"
	// PhaseActive: baseline and scale finalized; the height tracker runs
	// every frame until ResetCalibration.
	PhaseActive Phase = "active"
)

// Engine is the per-session estimation state machine. Frames must be
// delivered by a single caller at a time; control operations
// (SetAnthropometry, ResetCalibration) may come from a different goroutine
// and are serialized against frame processing by the engine's mutex.
type Engine struct {
	mu    sync.RWMutex
	cfg   EngineConfig
	clock timeutil.Clock
	bus   *SnapshotBus

	phase     Phase
	anthro    *Anthropometry
	stability *StabilityDetector
	calib     *CalibrationAccumulator
	baseline  *Baseline
	scale     *ScaleModel
	tracker   *HeightTracker

	frameCount int64
	// degenerate records that the most recent finalize attempt measured a
	// body height too small to trust; cleared on the next successful one.
	degenerate bool

	last DebugSnapshot
}

// NewEngine creates an engine in the searching phase.
func NewEngine(cfg EngineConfig, clock timeutil.Clock) *Engine {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Engine{
		cfg:       cfg,
		clock:     clock,
		bus:       NewSnapshotBus(),
		phase:     PhaseSearching,
		stability: NewStabilityDetector(cfg.StabilityWindow, cfg.MovementThresholdPx, cfg.MinJointConfidence),
	}
}

// Config returns the engine's resolved tuning constants.
func (e *Engine) Config() EngineConfig { return e.cfg }

// ProcessFrame is the single per-frame entry point. It advances the state
// machine and returns the diagnostics snapshot for the frame. Never fails:
// noisy or absent landmarks degrade the snapshot, they do not error.
func (e *Engine) ProcessFrame(frame LandmarkFrame) DebugSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.frameCount++

	hipY, hipConf, hipOK := frame.HipMidpoint()
	topY, bottomY, extentOK := frame.BodyExtent(e.cfg.MinJointConfidence)
	var bodyHeightPx float64
	if extentOK {
		bodyHeightPx = bottomY - topY
	}
	poseDetected := hipOK && hipConf >= e.cfg.MinJointConfidence

	switch e.phase {
	case PhaseSearching, PhaseStabilizing:
		st := e.observe(hipY, hipConf, hipOK)
		if poseDetected || st.Progress > 0 {
			e.phase = PhaseStabilizing
		} else {
			e.phase = PhaseSearching
		}
		if st.IsStable && extentOK {
			e.phase = PhaseCalibrating
			e.calib = NewCalibrationAccumulator(e.cfg.CalibrationFrames, e.cfg.MinBodyHeightPx)
			Diagf("subject stable after frame %d; calibration started", e.frameCount)
		}

	case PhaseCalibrating:
		st := e.observe(hipY, hipConf, hipOK)
		if !st.IsStable {
			// Partial progress does not carry across instability.
			e.calib = nil
			e.degenerate = false
			e.phase = PhaseStabilizing
			Diagf("stability lost at frame %d; calibration restarted", e.frameCount)
			break
		}
		if extentOK {
			if status := e.calib.Accept(hipY, bodyHeightPx); status.IsComplete {
				e.finalizeCalibration()
			}
		}

	case PhaseActive:
		if poseDetected {
			e.tracker.Update(hipY)
		}
	}

	snap := e.buildSnapshot(frame, hipY, hipOK, topY, bottomY, bodyHeightPx, extentOK, poseDetected)
	e.last = snap
	e.bus.Publish(snap)
	Tracef("frame %d phase=%s hipY=%.1f conf=%.2f", e.frameCount, snap.Phase, hipY, hipConf)
	return snap
}

// observe feeds the stability detector, mapping an unusable hip reading to
// the zero-confidence path.
func (e *Engine) observe(hipY, hipConf float64, hipOK bool) StabilityStatus {
	if !hipOK {
		return e.stability.Observe(0, 0)
	}
	return e.stability.Observe(hipY, hipConf)
}

// finalizeCalibration runs the scale converter exactly once per calibration
// cycle. Missing anthropometry leaves the engine parked in the calibrating
// phase; a degenerate body height restarts accumulation.
func (e *Engine) finalizeCalibration() {
	if e.anthro == nil {
		// Diagnosably stuck: the snapshot carries AnthropometrySet=false
		// and finalization is retried once measurements arrive.
		return
	}

	baseline, err := e.calib.Finalize()
	if err != nil {
		if errors.Is(err, ErrDegenerateCalibration) {
			e.degenerate = true
			Opsf("calibration withheld at frame %d: %v", e.frameCount, err)
		} else {
			Opsf("calibration failed at frame %d: %v", e.frameCount, err)
		}
		e.calib = NewCalibrationAccumulator(e.cfg.CalibrationFrames, e.cfg.MinBodyHeightPx)
		return
	}

	scale, err := ComputeScale(baseline, *e.anthro, e.cfg.ScaleUncertaintyFraction)
	if err != nil {
		Opsf("scale conversion failed at frame %d: %v", e.frameCount, err)
		e.calib = NewCalibrationAccumulator(e.cfg.CalibrationFrames, e.cfg.MinBodyHeightPx)
		return
	}

	var reach float64
	if e.anthro.HeelToHandReachCm != nil {
		reach = *e.anthro.HeelToHandReachCm
	}

	e.degenerate = false
	e.baseline = &baseline
	e.scale = &scale
	e.tracker = NewHeightTracker(baseline, scale, reach)
	e.calib = nil
	e.phase = PhaseActive
	Opsf("calibrated: hipY=%.1fpx bodyHeight=%.1fpx pxToCm=%.4f precise=%v",
		baseline.HipYPx, baseline.BodyHeightPx, scale.PxToCm, scale.IsPrecise)
}

func (e *Engine) buildSnapshot(frame LandmarkFrame, hipY float64, hipOK bool,
	topY, bottomY, bodyHeightPx float64, extentOK, poseDetected bool) DebugSnapshot {

	st := e.stability.Status()
	snap := DebugSnapshot{
		Phase:               e.phase,
		FrameCount:          e.frameCount,
		Timestamp:           e.clock.Now(),
		PoseDetected:        poseDetected,
		LandmarkCount:       frame.Count(),
		MeanConfidence:      frame.MeanConfidence(),
		BodyHeightPx:        bodyHeightPx,
		StabilityProgress:   st.Progress,
		StabilityMovementPx: st.MovementPx,
		CalibrationNeeded:   e.cfg.CalibrationFrames,

		DegenerateCalibration: e.degenerate,
		AnthropometrySet:      e.anthro != nil,
	}
	if hipOK {
		snap.CurrentHipYPx = hipY
	}
	if e.calib != nil {
		snap.CalibrationFrames = e.calib.Status().FramesAccumulated
	} else if e.phase == PhaseActive {
		snap.CalibrationFrames = e.cfg.CalibrationFrames
	}
	if e.baseline != nil {
		snap.BaselineHipYPx = e.baseline.HipYPx
		if hipOK {
			snap.MovementPx = e.baseline.HipYPx - hipY
		}
	}
	if e.scale != nil {
		snap.PxToCm = e.scale.PxToCm
		snap.ScaleIsPrecise = e.scale.IsPrecise
	}
	if extentOK {
		snap.PositionWarning = e.cfg.positionWarning(topY, bottomY)
	}
	if e.tracker != nil {
		snap.Measurement = e.tracker.State()
	}
	return snap
}

// SetAnthropometry supplies the athlete's measurements. It must be called
// before calibration completes; changing measurements once the engine is
// active does not recompute the scale — call ResetCalibration first.
func (e *Engine) SetAnthropometry(a Anthropometry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.anthro = &a
	if e.phase == PhaseActive {
		Opsf("anthropometry changed while active; reset calibration to apply")
	}
}

// Anthropometry returns the currently configured measurements, or nil.
func (e *Engine) Anthropometry() *Anthropometry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.anthro == nil {
		return nil
	}
	a := *e.anthro
	return &a
}

// ResetCalibration clears the baseline, scale and measurement state and
// returns the engine to the searching phase. Safe to call in any phase and
// idempotent; configured anthropometry survives the reset.
func (e *Engine) ResetCalibration() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.phase = PhaseSearching
	e.stability = NewStabilityDetector(e.cfg.StabilityWindow, e.cfg.MovementThresholdPx, e.cfg.MinJointConfidence)
	e.calib = nil
	e.baseline = nil
	e.scale = nil
	e.tracker = nil
	e.degenerate = false

	snap := DebugSnapshot{
		Phase:             PhaseSearching,
		FrameCount:        e.frameCount,
		Timestamp:         e.clock.Now(),
		CalibrationNeeded: e.cfg.CalibrationFrames,
		AnthropometrySet:  e.anthro != nil,
	}
	e.last = snap
	e.bus.Publish(snap)
	Opsf("calibration reset at frame %d", e.frameCount)
}

// Snapshot returns the diagnostics snapshot of the most recent frame (or the
// reset state). Safe for concurrent readers.
func (e *Engine) Snapshot() DebugSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Measurement returns the session's current best jump and reach figures.
func (e *Engine) Measurement() MeasurementState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.tracker == nil {
		return MeasurementState{}
	}
	return e.tracker.State()
}

// Scale returns the active scale model, or nil before calibration.
func (e *Engine) Scale() *ScaleModel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.scale == nil {
		return nil
	}
	s := *e.scale
	return &s
}

// Subscribe registers a listener on the snapshot bus.
func (e *Engine) Subscribe() (string, <-chan DebugSnapshot) { return e.bus.Subscribe() }

// Unsubscribe removes a snapshot listener.
func (e *Engine) Unsubscribe(id string) { e.bus.Unsubscribe(id) }

// Close shuts the snapshot bus down.
func (e *Engine) Close() { e.bus.Close() }
