// Package config loads and validates engine configuration from YAML. All
// knobs are checked at load time so a bad configuration fails before any
// search work starts.
package config

import (
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
)

// Config is the full engine configuration: search knobs, corpus location,
// persistence paths, judgment wiring, and the per-section guidance profiles.
type Config struct {
	Engine   EngineConfig           `yaml:"engine"`
	Corpus   CorpusConfig           `yaml:"corpus"`
	Memory   MemoryConfig           `yaml:"memory"`
	Judgment JudgmentConfig         `yaml:"judgment"`
	Sections []core.GuidanceProfile `yaml:"sections" validate:"min=1,dive"`
}

// EngineConfig holds the beam-search knobs.
type EngineConfig struct {
	// BeamWidth is the number of parallel search paths.
	BeamWidth int `yaml:"beam_width" validate:"gte=1"`

	// CheckpointInterval is the decision count between checkpoints.
	CheckpointInterval int `yaml:"checkpoint_interval" validate:"gte=1"`

	// Seed drives any randomized exploration; a fixed seed makes runs
	// reproducible.
	Seed int64 `yaml:"seed"`

	// EntropyThreshold is the score-closeness level below which the top
	// candidates are handed to the chooser. Zero disables the chooser.
	EntropyThreshold float64 `yaml:"entropy_threshold" validate:"gte=0"`

	// ExplorationJitter adds seeded noise of at most this magnitude to
	// candidate totals before ranking. Zero keeps ranking fully score-driven.
	ExplorationJitter float64 `yaml:"exploration_jitter" validate:"gte=0"`

	// RollbackPenalty is the negative-memory magnitude recorded for each
	// choice implicated in a rollback.
	RollbackPenalty float64 `yaml:"rollback_penalty" validate:"gte=0"`
}

// CorpusConfig names the fragment catalog.
type CorpusConfig struct {
	Path   string `yaml:"path" validate:"required"`
	Format string `yaml:"format" validate:"oneof=lines fragments parquet"`
}

// MemoryConfig holds optional persistence paths. Empty paths keep everything
// in process memory.
type MemoryConfig struct {
	SharedPath  string `yaml:"shared_path"`
	ArchivePath string `yaml:"archive_path"`
}

// JudgmentConfig wires the external critic. Provider "none" runs without
// judgment; every verdict is then accept-unchanged.
type JudgmentConfig struct {
	Provider string        `yaml:"provider" validate:"oneof=none anthropic"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Default returns the baseline configuration. Sections must still be supplied
// by the caller.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			BeamWidth:          4,
			CheckpointInterval: 5,
			EntropyThreshold:   0,
			RollbackPenalty:    1.0,
		},
		Corpus: CorpusConfig{Format: "lines"},
		Judgment: JudgmentConfig{
			Provider: "none",
			Timeout:  10 * time.Second,
		},
	}
}

// Load reads, merges over defaults, and validates a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WithFields(
			errors.Wrap(err, errors.ConfigurationError, "failed to read config file"),
			errors.Fields{"path": path},
		)
	}
	return Parse(data)
}

// Parse merges YAML data over defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.ConfigurationError, "failed to parse config")
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SectionProfile builds a guidance profile with neutral weight priors and one
// obligation per named family: at least one hit, ceiling at the section
// budget. A convenience for callers that plan sections programmatically
// instead of writing YAML.
func SectionProfile(section, speaker string, budget int, families ...string) core.GuidanceProfile {
	obligations := make([]core.Obligation, 0, len(families))
	for _, family := range families {
		obligations = append(obligations, core.Obligation{Family: family, MinHits: 1, MaxHits: budget})
	}
	return core.GuidanceProfile{
		Section:        section,
		Speaker:        speaker,
		DecisionBudget: budget,
		Grammar:        core.GrammarSoft,
		Meter:          core.MeterOff,
		Obligations:    obligations,
		Weights: core.Weights{
			SemanticFit:          1,
			VoiceFit:             1,
			ContinuityCoverage:   1,
			NoveltyPenalty:       1,
			RelationshipModifier: 1,
		},
	}
}

var validate = validator.New()

// Validate checks structural tags plus the rules tags cannot express:
// finite weights, obligation floors below ceilings, and distinct sections.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ConfigurationError, "config is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			e := verrs[0]
			return errors.WithFields(
				errors.New(errors.ConfigurationError, "config validation failed"),
				errors.Fields{"field": e.Namespace(), "rule": e.Tag()},
			)
		}
		return errors.Wrap(err, errors.ConfigurationError, "config validation failed")
	}

	seen := make(map[string]bool, len(cfg.Sections))
	for _, section := range cfg.Sections {
		if seen[section.Section] {
			return errors.WithFields(
				errors.New(errors.ConfigurationError, "duplicate section"),
				errors.Fields{"section": section.Section},
			)
		}
		seen[section.Section] = true

		if !section.Weights.Valid() {
			return errors.WithFields(
				errors.New(errors.ConfigurationError, "section weights must be finite and non-negative"),
				errors.Fields{"section": section.Section},
			)
		}
		for _, o := range section.Obligations {
			if o.MaxHits > 0 && o.MinHits > o.MaxHits {
				return errors.WithFields(
					errors.New(errors.ConfigurationError, "obligation floor exceeds ceiling"),
					errors.Fields{"section": section.Section, "family": o.Family},
				)
			}
			if o.MinHits > section.DecisionBudget {
				return errors.WithFields(
					errors.New(errors.ConfigurationError, "obligation floor exceeds section decision budget"),
					errors.Fields{"section": section.Section, "family": o.Family},
				)
			}
		}
	}

	if !isFinite(cfg.Engine.EntropyThreshold) || !isFinite(cfg.Engine.RollbackPenalty) || !isFinite(cfg.Engine.ExplorationJitter) {
		return errors.New(errors.ConfigurationError, "engine thresholds must be finite")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
