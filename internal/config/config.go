// Package config holds idpgo's run configuration.
//
// Grounded on internal/config/config.go in the teacher repo: one
// top-level Config struct composed of nested, yaml-tagged
// sub-structs, with a DefaultConfig() constructor. Design note §9
// asks for the global GlobalData/Options singleton to become an
// explicit value threaded through the inference entry point instead;
// Config (and its embedded Options) is that value.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for an idpgo run.
type Config struct {
	Name    string  `yaml:"name"`
	Version string  `yaml:"version"`
	Options Options `yaml:"options"`
	Logging LoggingConfig `yaml:"logging"`
}

// Options carries every tunable named in spec §6.
type Options struct {
	// GroundWithBounds runs bounds propagation (spec §4.3) before
	// grounding.
	GroundWithBounds bool `yaml:"ground_with_bounds"`

	// LiftedUnitPropagation shrinks the structure pre-grounding using
	// propagation results.
	LiftedUnitPropagation bool `yaml:"lifted_unit_propagation"`

	// CPSupport routes integer expressions through CP reifications
	// instead of fully enumerating them.
	CPSupport bool `yaml:"cp_support"`

	// SatisfiabilityDelay enables lazy grounding (spec §4.7).
	SatisfiabilityDelay bool `yaml:"satisfiability_delay"`

	// LazySizeThreshold is log2 of the ground-size threshold above
	// which lazy delay is preferred.
	LazySizeThreshold int `yaml:"lazy_size_threshold"`

	// TseitinDelay additionally allows delaying already-Tseitin-named
	// subformulas.
	TseitinDelay bool `yaml:"tseitin_delay"`

	// ExpandImmediately disables all lazy behavior, grounding
	// everything eagerly regardless of size.
	ExpandImmediately bool `yaml:"expand_immediately"`

	// NrPropSteps caps the number of bounds-propagation scheduler
	// steps; <=0 means unbounded.
	NrPropSteps int `yaml:"nr_prop_steps"`

	// RelativePropagationSteps multiplies NrPropSteps by the number
	// of subformulas in the theory, per spec §4.3.
	RelativePropagationSteps bool `yaml:"relative_propagation_steps"`

	// LongestBranch caps the longest branch length fobdd.LongestBranch
	// will traverse before giving up and returning a conservative
	// answer.
	LongestBranch int `yaml:"longest_branch"`

	// NbModels caps the number of models ModelExpand searches for;
	// 0 means "all".
	NbModels int `yaml:"nb_models"`

	// MxTimeout is the wall-clock budget for a single inference call.
	MxTimeout time.Duration `yaml:"mx_timeout"`

	// MxMemoryOut is the memory budget in bytes for a single inference
	// call; 0 disables the memory check.
	MxMemoryOut int64 `yaml:"mx_memory_out"`

	RandomSeed int64 `yaml:"random_seed"`

	// WatchedRelevance biases delay discovery towards predicates
	// already watched by a pending delay.
	WatchedRelevance bool `yaml:"watched_relevance"`

	// StableSemantics switches CalculateDefinitions from
	// well-founded/Kripke-Kleene evaluation to stable-model search.
	StableSemantics bool `yaml:"stable_semantics"`
}

// LoggingConfig controls idpgo/logging.Init.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DefaultOptions mirrors the "defaults in parentheses" column of
// spec §6.
func DefaultOptions() Options {
	return Options{
		GroundWithBounds:         true,
		LiftedUnitPropagation:    true,
		CPSupport:                true,
		SatisfiabilityDelay:      false,
		LazySizeThreshold:        20,
		TseitinDelay:             false,
		ExpandImmediately:        false,
		NrPropSteps:              10000,
		RelativePropagationSteps: true,
		LongestBranch:            12,
		NbModels:                 1,
		MxTimeout:                0,
		MxMemoryOut:              0,
		RandomSeed:               0,
		WatchedRelevance:         true,
		StableSemantics:          false,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "idpgo",
		Version: "0.1.0",
		Options: DefaultOptions(),
	}
}

// Load reads and parses a yaml configuration file, filling in any
// zero-valued Options fields from DefaultOptions first so a partial
// file only needs to mention the options it overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects inconsistent option combinations fast, per
// spec §7's "Configuration error" category.
func (c *Config) Validate() error {
	if c.Options.NbModels < 0 {
		return fmt.Errorf("config: nb_models must be >= 0, got %d", c.Options.NbModels)
	}
	if c.Options.LazySizeThreshold < 0 {
		return fmt.Errorf("config: lazy_size_threshold must be >= 0, got %d", c.Options.LazySizeThreshold)
	}
	if c.Options.ExpandImmediately && c.Options.SatisfiabilityDelay {
		return fmt.Errorf("config: expand_immediately and satisfiability_delay are mutually exclusive")
	}
	return nil
}
