// Package config loads and validates the pipeline configuration.
//
// Configuration is an explicit struct handed to the pipeline entry point;
// nothing is read from the environment. Fields omitted from the JSON file
// keep their defaults through the Get* accessors, so partial configs are
// safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phantom-data/phantom.report/internal/qa"
)

// Config is the root configuration for a QC run.
type Config struct {
	// DataRoot is the directory holding per-scanner scan directories
	// (<root>/<scanner serial>/<YYYYMMDD>/). Required for batch runs.
	DataRoot *string `json:"data_root,omitempty"`

	// DatabasePath locates the longitudinal metrics database.
	DatabasePath *string `json:"database_path,omitempty"`

	// PhaseEncodeAxis names the spatial axis along which the Nyquist ghost
	// is displaced: "x", "y" or "z".
	PhaseEncodeAxis *string `json:"phase_encode_axis,omitempty"`

	// Mask builder tuning
	ErodeRadiusMM     *float64 `json:"erode_radius_mm,omitempty"`
	DilateIterations  *int     `json:"dilate_iterations,omitempty"`
	ThresholdFraction *float64 `json:"threshold_fraction,omitempty"`
	Percentile        *float64 `json:"percentile,omitempty"`

	// Workers bounds the number of scan directories processed in parallel
	// by a batch run. Directories are independent; there is no parallelism
	// inside a single scan.
	Workers *int `json:"workers,omitempty"`

	// Thresholds is the acceptance-bounds table, metric name to inclusive
	// [lower, upper] range.
	Thresholds qa.BoundsTable `json:"thresholds,omitempty"`
}

// Default returns a config with every field unset, so the Get* accessors
// yield the protocol defaults.
func Default() *Config {
	return &Config{}
}

// Load reads a JSON config file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q: %w", ext, qa.ErrBadConfig)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	if c.PhaseEncodeAxis != nil {
		switch *c.PhaseEncodeAxis {
		case "x", "y", "z":
		default:
			return fmt.Errorf("phase_encode_axis must be x, y or z, got %q: %w", *c.PhaseEncodeAxis, qa.ErrBadConfig)
		}
	}
	if c.ErodeRadiusMM != nil && *c.ErodeRadiusMM <= 0 {
		return fmt.Errorf("erode_radius_mm must be positive, got %g: %w", *c.ErodeRadiusMM, qa.ErrBadConfig)
	}
	if c.DilateIterations != nil && *c.DilateIterations < 1 {
		return fmt.Errorf("dilate_iterations must be at least 1, got %d: %w", *c.DilateIterations, qa.ErrBadConfig)
	}
	if c.ThresholdFraction != nil && (*c.ThresholdFraction <= 0 || *c.ThresholdFraction >= 1) {
		return fmt.Errorf("threshold_fraction must be in (0,1), got %g: %w", *c.ThresholdFraction, qa.ErrBadConfig)
	}
	if c.Percentile != nil && (*c.Percentile <= 0 || *c.Percentile > 100) {
		return fmt.Errorf("percentile must be in (0,100], got %g: %w", *c.Percentile, qa.ErrBadConfig)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d: %w", *c.Workers, qa.ErrBadConfig)
	}
	for name, b := range c.Thresholds {
		if b.Lower > b.Upper {
			return fmt.Errorf("threshold %s: lower %g exceeds upper %g: %w", name, b.Lower, b.Upper, qa.ErrBadConfig)
		}
	}
	return nil
}

// GetDataRoot returns the data root or the empty string.
func (c *Config) GetDataRoot() string {
	if c.DataRoot == nil {
		return ""
	}
	return *c.DataRoot
}

// GetDatabasePath returns the metrics database path or the default.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == nil {
		return "qc_metrics.db"
	}
	return *c.DatabasePath
}

// GetPhaseEncodeAxis returns the configured phase-encode axis index.
// EPI phantom protocols phase-encode along y by default.
func (c *Config) GetPhaseEncodeAxis() string {
	if c.PhaseEncodeAxis == nil {
		return "y"
	}
	return *c.PhaseEncodeAxis
}

// GetWorkers returns the batch worker count or the default.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// MaskOptions assembles the mask builder tuning from the config.
func (c *Config) MaskOptions() qa.MaskOptions {
	opts := qa.MaskOptions{}
	if c.ErodeRadiusMM != nil {
		opts.ErodeRadiusMM = *c.ErodeRadiusMM
	}
	if c.DilateIterations != nil {
		opts.DilateIterations = *c.DilateIterations
	}
	if c.ThresholdFraction != nil {
		opts.ThresholdFraction = *c.ThresholdFraction
	}
	if c.Percentile != nil {
		opts.Percentile = *c.Percentile
	}
	return opts
}

// GetThresholds returns the acceptance-bounds table, falling back to the
// protocol defaults when none are configured.
func (c *Config) GetThresholds() qa.BoundsTable {
	if len(c.Thresholds) > 0 {
		return c.Thresholds
	}
	return DefaultThresholds()
}

// DefaultThresholds is the acceptance table used when the config does not
// supply one. Bounds are inclusive; metrics not listed are unconstrained.
func DefaultThresholds() qa.BoundsTable {
	return qa.BoundsTable{
		"tmean_snr":      {Lower: 20, Upper: 1e6},
		"sig_drift_perc": {Lower: 0, Upper: 3},
		"spikes_phantom": {Lower: 0, Upper: 5},
		"spikes_nyquist": {Lower: 0, Upper: 10},
		"spikes_noise":   {Lower: 0, Upper: 10},
		"max_abs_dx":     {Lower: 0, Upper: 500},
		"max_abs_dy":     {Lower: 0, Upper: 500},
		"max_abs_dz":     {Lower: 0, Upper: 500},
	}
}
