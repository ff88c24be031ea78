package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the product-tunable constants of the estimation engine.
// The schema matches the /api/config endpoint so the same JSON serves both
// startup configuration and live inspection. All fields are optional; the
// Get* accessors fall back to defaults, so partial configs are safe.
type TuningConfig struct {
	// Stability detector params
	StabilityWindow     *int     `json:"stability_window,omitempty"`
	MovementThresholdPx *float64 `json:"movement_threshold_px,omitempty"`
	MinJointConfidence  *float64 `json:"min_joint_confidence,omitempty"`

	// Calibration params
	CalibrationFrames        *int     `json:"calibration_frames,omitempty"`
	MinBodyHeightPx          *float64 `json:"min_body_height_px,omitempty"`
	ScaleUncertaintyFraction *float64 `json:"scale_uncertainty_fraction,omitempty"`

	// Positioning warning params
	FrameWidthPx          *float64 `json:"frame_width_px,omitempty"`
	FrameHeightPx         *float64 `json:"frame_height_px,omitempty"`
	EdgeMarginFraction    *float64 `json:"edge_margin_fraction,omitempty"`
	MinBodyHeightFraction *float64 `json:"min_body_height_fraction,omitempty"`
	MaxBodyHeightFraction *float64 `json:"max_body_height_fraction,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and stay under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the working directory. Panics if
// the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.StabilityWindow != nil && *c.StabilityWindow < 2 {
		return fmt.Errorf("stability_window must be at least 2, got %d", *c.StabilityWindow)
	}
	if c.MovementThresholdPx != nil && *c.MovementThresholdPx <= 0 {
		return fmt.Errorf("movement_threshold_px must be positive, got %f", *c.MovementThresholdPx)
	}
	if c.MinJointConfidence != nil {
		if *c.MinJointConfidence < 0 || *c.MinJointConfidence > 1 {
			return fmt.Errorf("min_joint_confidence must be between 0 and 1, got %f", *c.MinJointConfidence)
		}
	}
	if c.CalibrationFrames != nil && *c.CalibrationFrames < 1 {
		return fmt.Errorf("calibration_frames must be at least 1, got %d", *c.CalibrationFrames)
	}
	if c.ScaleUncertaintyFraction != nil {
		if *c.ScaleUncertaintyFraction < 0 || *c.ScaleUncertaintyFraction >= 1 {
			return fmt.Errorf("scale_uncertainty_fraction must be in [0,1), got %f", *c.ScaleUncertaintyFraction)
		}
	}
	if c.MinBodyHeightPx != nil && *c.MinBodyHeightPx < 0 {
		return fmt.Errorf("min_body_height_px must be non-negative, got %f", *c.MinBodyHeightPx)
	}
	if c.EdgeMarginFraction != nil {
		if *c.EdgeMarginFraction < 0 || *c.EdgeMarginFraction > 0.5 {
			return fmt.Errorf("edge_margin_fraction must be in [0,0.5], got %f", *c.EdgeMarginFraction)
		}
	}
	if c.MinBodyHeightFraction != nil && c.MaxBodyHeightFraction != nil {
		if *c.MinBodyHeightFraction >= *c.MaxBodyHeightFraction {
			return fmt.Errorf("min_body_height_fraction %f must be below max_body_height_fraction %f",
				*c.MinBodyHeightFraction, *c.MaxBodyHeightFraction)
		}
	}
	return nil
}

// GetStabilityWindow returns the stability_window value or the default.
func (c *TuningConfig) GetStabilityWindow() int {
	if c.StabilityWindow == nil {
		return 30 // ~1s of frames at 30fps
	}
	return *c.StabilityWindow
}

// GetMovementThresholdPx returns the movement_threshold_px value or the default.
func (c *TuningConfig) GetMovementThresholdPx() float64 {
	if c.MovementThresholdPx == nil {
		return 12.0
	}
	return *c.MovementThresholdPx
}

// GetMinJointConfidence returns the min_joint_confidence value or the default.
func (c *TuningConfig) GetMinJointConfidence() float64 {
	if c.MinJointConfidence == nil {
		return 0.5
	}
	return *c.MinJointConfidence
}

// GetCalibrationFrames returns the calibration_frames value or the default.
func (c *TuningConfig) GetCalibrationFrames() int {
	if c.CalibrationFrames == nil {
		return 30
	}
	return *c.CalibrationFrames
}

// GetMinBodyHeightPx returns the min_body_height_px value or the default.
func (c *TuningConfig) GetMinBodyHeightPx() float64 {
	if c.MinBodyHeightPx == nil {
		return 120.0
	}
	return *c.MinBodyHeightPx
}

// GetScaleUncertaintyFraction returns the scale_uncertainty_fraction value or the default.
func (c *TuningConfig) GetScaleUncertaintyFraction() float64 {
	if c.ScaleUncertaintyFraction == nil {
		return 0.05
	}
	return *c.ScaleUncertaintyFraction
}

// GetFrameWidthPx returns the frame_width_px value or the default.
func (c *TuningConfig) GetFrameWidthPx() float64 {
	if c.FrameWidthPx == nil {
		return 720.0
	}
	return *c.FrameWidthPx
}

// GetFrameHeightPx returns the frame_height_px value or the default.
func (c *TuningConfig) GetFrameHeightPx() float64 {
	if c.FrameHeightPx == nil {
		return 1280.0
	}
	return *c.FrameHeightPx
}

// GetEdgeMarginFraction returns the edge_margin_fraction value or the default.
func (c *TuningConfig) GetEdgeMarginFraction() float64 {
	if c.EdgeMarginFraction == nil {
		return 0.03
	}
	return *c.EdgeMarginFraction
}

// GetMinBodyHeightFraction returns the min_body_height_fraction value or the default.
func (c *TuningConfig) GetMinBodyHeightFraction() float64 {
	if c.MinBodyHeightFraction == nil {
		return 0.35
	}
	return *c.MinBodyHeightFraction
}

// GetMaxBodyHeightFraction returns the max_body_height_fraction value or the default.
func (c *TuningConfig) GetMaxBodyHeightFraction() float64 {
	if c.MaxBodyHeightFraction == nil {
		return 0.95
	}
	return *c.MaxBodyHeightFraction
}
