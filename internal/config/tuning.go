// Package config loads estimator tuning parameters from JSON.
// Fields are pointers so a file can override any subset of the
// defaults; getters fall back to the compiled-in default values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultConfigPath is the path to the canonical tuning defaults file,
// the single source of truth for default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Compiled-in fallbacks, used when a field is absent from the file.
const (
	defaultMaxIterations       = 20
	defaultPrecision           = 1e-10
	defaultBackwardPropagation = true
	defaultBzTesla             = 2.0
)

// TuningConfig holds the tunable knobs of the impact point estimator
// and the tools built around it.
type TuningConfig struct {
	// Newton iteration limits.
	MaxIterations *int     `json:"max_iterations,omitempty"`
	Precision     *float64 `json:"precision,omitempty"`

	// Propagation direction for parameter construction at the PCA.
	DoBackwardPropagation *bool `json:"do_backward_propagation,omitempty"`

	// Constant axial field used when no field map is configured.
	BzTesla *float64 `json:"bz_tesla,omitempty"`
}

// LoadConfig reads and parses a tuning file.
func LoadConfig(path string) (*TuningConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning config %s: %w", path, err)
	}
	var cfg TuningConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse tuning config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tuning config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects values that would make the estimator misbehave.
func (c *TuningConfig) Validate() error {
	if c.MaxIterations != nil && *c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", *c.MaxIterations)
	}
	if c.Precision != nil && *c.Precision <= 0 {
		return fmt.Errorf("precision must be positive, got %g", *c.Precision)
	}
	return nil
}

// GetMaxIterations returns the Newton iteration cap.
func (c *TuningConfig) GetMaxIterations() int {
	if c != nil && c.MaxIterations != nil {
		return *c.MaxIterations
	}
	return defaultMaxIterations
}

// GetPrecision returns the Newton phi-update tolerance.
func (c *TuningConfig) GetPrecision() float64 {
	if c != nil && c.Precision != nil {
		return *c.Precision
	}
	return defaultPrecision
}

// GetDoBackwardPropagation reports whether transports run backward.
func (c *TuningConfig) GetDoBackwardPropagation() bool {
	if c != nil && c.DoBackwardPropagation != nil {
		return *c.DoBackwardPropagation
	}
	return defaultBackwardPropagation
}

// GetBzTesla returns the constant axial field in tesla.
func (c *TuningConfig) GetBzTesla() float64 {
	if c != nil && c.BzTesla != nil {
		return *c.BzTesla
	}
	return defaultBzTesla
}
