// Package config provides the unified configuration system for cohort.
// It defines a single IngestConfig structure that every ingestion run uses,
// ensuring consistent behavior across file formats.
//
// The configuration is organized into logical sections:
//   - Inference: type-classification thresholds
//   - Identifier: question-name normalization limits
//   - Sampling: agent subsampling size and seed
//   - Observability: metrics and logging
//
// Example usage:
//
//	cfg := config.NewIngestConfig("responses.csv")
//	cfg.Sampling.Size = 100
//	cfg.Sampling.Seed = 42
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import "fmt"

// IngestConfig is the single configuration structure for an ingestion run.
type IngestConfig struct {
	// Datafile is the path of the file being ingested
	Datafile string `yaml:"datafile" json:"datafile"`
	// Format overrides extension-based format detection (csv, sav, dta)
	Format string `yaml:"format" json:"format"`

	// Inference controls statistical type classification
	Inference InferenceConfig `yaml:"inference" json:"inference"`

	// Identifier controls question-name normalization
	Identifier IdentifierConfig `yaml:"identifier" json:"identifier"`

	// Sampling controls agent subsampling
	Sampling SamplingConfig `yaml:"sampling" json:"sampling"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// InferenceConfig contains the thresholds used to classify a response column
// into a question type. The defaults match the documented classification
// rules; change them only when a survey's answer space genuinely differs.
type InferenceConfig struct {
	// MaxUniqueForChoice is the unique-response ceiling below which a column
	// is a multiple choice question
	MaxUniqueForChoice int `yaml:"max_unique_for_choice" json:"max_unique_for_choice"`
	// MinNumericFraction is the share of numeric-parseable responses above
	// which a column is numerical
	MinNumericFraction float64 `yaml:"min_numeric_fraction" json:"min_numeric_fraction"`
	// MinTopShare is the share of observations the five most frequent
	// responses must cover for a column to be multiple choice with other
	MinTopShare float64 `yaml:"min_top_share" json:"min_top_share"`
}

// IdentifierConfig contains question-name normalization settings.
type IdentifierConfig struct {
	// MaxRepairAttempts caps how often the repair capability is retried for
	// one raw name before a deterministic fallback is used
	MaxRepairAttempts int `yaml:"max_repair_attempts" json:"max_repair_attempts"`
}

// SamplingConfig contains agent-materialization sampling settings.
// A zero Size materializes one agent per observation.
type SamplingConfig struct {
	// Size is the number of agents to sample; 0 keeps all observations
	Size int `yaml:"size" json:"size"`
	// Seed makes the unweighted sample reproducible; it is always applied
	Seed int64 `yaml:"seed" json:"seed"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates span emission around pipeline phases
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewIngestConfig creates an IngestConfig with the default thresholds.
//
// Example:
//
//	cfg := config.NewIngestConfig("panel_2024.sav")
//	cfg.Inference.MaxUniqueForChoice = 20 // override default
func NewIngestConfig(datafile string) *IngestConfig {
	return &IngestConfig{
		Datafile: datafile,
		Inference: InferenceConfig{
			MaxUniqueForChoice: 15,
			MinNumericFraction: 0.8,
			MinTopShare:        0.5,
		},
		Identifier: IdentifierConfig{
			MaxRepairAttempts: 5,
		},
		Sampling: SamplingConfig{
			Size: 0,
			Seed: 1,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableTracing: false,
			LogLevel:      "info",
		},
	}
}

// Validate validates the configuration for correctness.
// It checks required fields and ensures values are within acceptable ranges.
// Callers should invoke this after loading configuration to catch errors early.
func (c *IngestConfig) Validate() error {
	if c.Inference.MaxUniqueForChoice <= 0 {
		return fmt.Errorf("max_unique_for_choice must be positive")
	}
	if c.Inference.MinNumericFraction < 0 || c.Inference.MinNumericFraction > 1 {
		return fmt.Errorf("min_numeric_fraction must be in [0, 1]")
	}
	if c.Inference.MinTopShare < 0 || c.Inference.MinTopShare > 1 {
		return fmt.Errorf("min_top_share must be in [0, 1]")
	}
	if c.Identifier.MaxRepairAttempts <= 0 {
		return fmt.Errorf("max_repair_attempts must be positive")
	}
	if c.Sampling.Size < 0 {
		return fmt.Errorf("sampling size cannot be negative")
	}
	return nil
}

// IsSampled returns true if agent subsampling is enabled
func (s *SamplingConfig) IsSampled() bool {
	return s.Size > 0
}
