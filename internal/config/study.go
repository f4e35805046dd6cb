package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/scenariolab/workbench/internal/discovery"
	"github.com/scenariolab/workbench/internal/ensemble"
	"github.com/scenariolab/workbench/internal/sampling"
)

// StudyConfig represents the root configuration for a workbench study:
// how many experiments to generate, how to run them, and how the
// discovery pass is tuned. All fields are optional; omitted fields fall
// back to the defaults the Get* accessors provide, so partial configs
// are safe.
type StudyConfig struct {
	// Design params
	Scenarios    *int    `json:"scenarios,omitempty"`
	Policies     *int    `json:"policies,omitempty"`
	Replications *int    `json:"replications,omitempty"`
	Seed         *uint64 `json:"seed,omitempty"`
	Sampler      *string `json:"sampler,omitempty"` // "lhs" or "mc"

	// Runner params
	Workers                *int    `json:"workers,omitempty"`
	MaxConsecutiveFailures *int    `json:"max_consecutive_failures,omitempty"`
	GraceTimeout           *string `json:"grace_timeout,omitempty"` // duration string like "5s"

	// Discovery params
	PeelAlpha        *float64 `json:"peel_alpha,omitempty"`
	PasteAlpha       *float64 `json:"paste_alpha,omitempty"`
	MassMin          *float64 `json:"mass_min,omitempty"`
	DensityFloor     *float64 `json:"density_floor,omitempty"`
	DensityThreshold *float64 `json:"density_threshold,omitempty"`
	MinInteresting   *int     `json:"min_interesting,omitempty"`
	MinPoints        *int     `json:"min_points,omitempty"`
}

// EmptyStudyConfig returns a StudyConfig with all fields set to nil.
// Use LoadStudyConfig to load actual values from a file.
func EmptyStudyConfig() *StudyConfig {
	return &StudyConfig{}
}

// LoadStudyConfig loads a StudyConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadStudyConfig(path string) (*StudyConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyStudyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *StudyConfig) Validate() error {
	if c.Scenarios != nil && *c.Scenarios < 1 {
		return fmt.Errorf("scenarios must be positive, got %d", *c.Scenarios)
	}
	if c.Policies != nil && *c.Policies < 0 {
		return fmt.Errorf("policies must be non-negative, got %d", *c.Policies)
	}
	if c.Replications != nil && *c.Replications < 1 {
		return fmt.Errorf("replications must be positive, got %d", *c.Replications)
	}
	if c.Sampler != nil {
		if _, err := sampling.ParseMethod(*c.Sampler); err != nil {
			return fmt.Errorf("invalid sampler: %w", err)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.MaxConsecutiveFailures != nil && *c.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("max_consecutive_failures must be non-negative, got %d", *c.MaxConsecutiveFailures)
	}
	if c.GraceTimeout != nil && *c.GraceTimeout != "" {
		if _, err := time.ParseDuration(*c.GraceTimeout); err != nil {
			return fmt.Errorf("invalid grace_timeout '%s': %w", *c.GraceTimeout, err)
		}
	}
	if c.PeelAlpha != nil {
		if *c.PeelAlpha <= 0 || *c.PeelAlpha >= 0.5 {
			return fmt.Errorf("peel_alpha must be in (0, 0.5), got %f", *c.PeelAlpha)
		}
	}
	if c.PasteAlpha != nil {
		if *c.PasteAlpha <= 0 || *c.PasteAlpha >= 0.5 {
			return fmt.Errorf("paste_alpha must be in (0, 0.5), got %f", *c.PasteAlpha)
		}
	}
	if c.MassMin != nil {
		if *c.MassMin <= 0 || *c.MassMin > 1 {
			return fmt.Errorf("mass_min must be in (0, 1], got %f", *c.MassMin)
		}
	}
	if c.DensityFloor != nil && (*c.DensityFloor < 0 || *c.DensityFloor > 1) {
		return fmt.Errorf("density_floor must be between 0 and 1, got %f", *c.DensityFloor)
	}
	if c.DensityThreshold != nil && (*c.DensityThreshold < 0 || *c.DensityThreshold > 1) {
		return fmt.Errorf("density_threshold must be between 0 and 1, got %f", *c.DensityThreshold)
	}
	if c.MinInteresting != nil && *c.MinInteresting < 1 {
		return fmt.Errorf("min_interesting must be positive, got %d", *c.MinInteresting)
	}
	if c.MinPoints != nil && *c.MinPoints < 1 {
		return fmt.Errorf("min_points must be positive, got %d", *c.MinPoints)
	}
	return nil
}

// GetScenarios returns the scenarios value or the default.
func (c *StudyConfig) GetScenarios() int {
	if c.Scenarios == nil {
		return 100
	}
	return *c.Scenarios
}

// GetPolicies returns the policies value or the default. Zero means the
// design runs every scenario against the baseline do-nothing policy.
func (c *StudyConfig) GetPolicies() int {
	if c.Policies == nil {
		return 0
	}
	return *c.Policies
}

// GetReplications returns the replications value or the default.
func (c *StudyConfig) GetReplications() int {
	if c.Replications == nil {
		return 1
	}
	return *c.Replications
}

// GetSeed returns the seed value or the default.
func (c *StudyConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetSampler parses and returns the sampling method, defaulting to
// Latin hypercube.
func (c *StudyConfig) GetSampler() sampling.Method {
	if c.Sampler == nil || *c.Sampler == "" {
		return sampling.LatinHypercube
	}
	m, err := sampling.ParseMethod(*c.Sampler)
	if err != nil {
		return sampling.LatinHypercube
	}
	return m
}

// GetGraceTimeout parses and returns the GraceTimeout as a time.Duration.
func (c *StudyConfig) GetGraceTimeout() time.Duration {
	if c.GraceTimeout == nil || *c.GraceTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.GraceTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetWorkers returns the workers value or the default. Zero lets the
// runner size the pool from the host.
func (c *StudyConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetMaxConsecutiveFailures returns the max_consecutive_failures value.
// Unset means 0: the run-fatal abort stays disabled unless asked for.
func (c *StudyConfig) GetMaxConsecutiveFailures() int {
	if c.MaxConsecutiveFailures == nil {
		return 0
	}
	return *c.MaxConsecutiveFailures
}

// RunnerConfig assembles the ensemble runner options.
func (c *StudyConfig) RunnerConfig() ensemble.Config {
	return ensemble.Config{
		Workers:                c.GetWorkers(),
		MaxConsecutiveFailures: c.GetMaxConsecutiveFailures(),
		GraceTimeout:           c.GetGraceTimeout(),
	}
}

// DiscoveryConfig assembles the rule-induction options. Unset knobs stay
// zero so the discovery package applies its own defaults.
func (c *StudyConfig) DiscoveryConfig() discovery.Config {
	cfg := discovery.Config{}
	if c.PeelAlpha != nil {
		cfg.PeelAlpha = *c.PeelAlpha
	}
	if c.PasteAlpha != nil {
		cfg.PasteAlpha = *c.PasteAlpha
	}
	if c.MassMin != nil {
		cfg.MassMin = *c.MassMin
	}
	if c.DensityFloor != nil {
		cfg.DensityFloor = *c.DensityFloor
	}
	if c.DensityThreshold != nil {
		cfg.DensityThreshold = *c.DensityThreshold
	}
	if c.MinInteresting != nil {
		cfg.MinInteresting = *c.MinInteresting
	}
	if c.MinPoints != nil {
		cfg.MinPoints = *c.MinPoints
	}
	return cfg
}
