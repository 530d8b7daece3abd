package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
)

func validConfig() Config {
	cfg := Default()
	cfg.Corpus.Path = "corpus.jsonl"
	cfg.Sections = []core.GuidanceProfile{
		{
			Section:        "1.1",
			Speaker:        "HAMLET",
			DecisionBudget: 6,
			Grammar:        core.GrammarSoft,
			Obligations:    []core.Obligation{{Family: "mortality", MinHits: 1, MaxHits: 3}},
			Weights:        core.Weights{SemanticFit: 1, VoiceFit: 1, ContinuityCoverage: 1, NoveltyPenalty: 1, RelationshipModifier: 1},
		},
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4, cfg.Engine.BeamWidth)
	assert.Equal(t, 5, cfg.Engine.CheckpointInterval)
	assert.Equal(t, "none", cfg.Judgment.Provider)
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Validate(&cfg))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"zero beam width", func(cfg *Config) { cfg.Engine.BeamWidth = 0 }},
		{"zero checkpoint interval", func(cfg *Config) { cfg.Engine.CheckpointInterval = 0 }},
		{"no sections", func(cfg *Config) { cfg.Sections = nil }},
		{"missing corpus path", func(cfg *Config) { cfg.Corpus.Path = "" }},
		{"bad corpus format", func(cfg *Config) { cfg.Corpus.Format = "csv" }},
		{"bad judgment provider", func(cfg *Config) { cfg.Judgment.Provider = "oracle" }},
		{"duplicate section", func(cfg *Config) { cfg.Sections = append(cfg.Sections, cfg.Sections[0]) }},
		{"floor above ceiling", func(cfg *Config) { cfg.Sections[0].Obligations[0].MinHits = 5 }},
		{"floor above budget", func(cfg *Config) {
			cfg.Sections[0].Obligations[0].MinHits = 7
			cfg.Sections[0].Obligations[0].MaxHits = 9
		}},
		{"negative weight", func(cfg *Config) { cfg.Sections[0].Weights.VoiceFit = -1 }},
		{"zero decision budget", func(cfg *Config) { cfg.Sections[0].DecisionBudget = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			require.Error(t, err)
			assert.Equal(t, errors.ConfigurationError, errors.Code(err))
		})
	}
}

func TestParseMergesOverDefaults(t *testing.T) {
	data := []byte(`
engine:
  beam_width: 2
corpus:
  path: corpus.jsonl
sections:
  - section: "1.1"
    speaker: HAMLET
    decision_budget: 6
    grammar: soft
    weights:
      semantic_fit: 1
      voice_fit: 1
      continuity_coverage: 1
      novelty_penalty: 1
      relationship_modifier: 1
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.BeamWidth)
	// Untouched knobs keep their defaults.
	assert.Equal(t, 5, cfg.Engine.CheckpointInterval)
	assert.Equal(t, "lines", cfg.Corpus.Format)
	require.Len(t, cfg.Sections, 1)
	assert.Equal(t, core.GrammarSoft, cfg.Sections[0].Grammar)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.ConfigurationError, errors.Code(err))
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
corpus:
  path: corpus.jsonl
sections:
  - section: "1.1"
    decision_budget: 4
    weights:
      semantic_fit: 1
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "corpus.jsonl", cfg.Corpus.Path)
}

func TestSectionProfile(t *testing.T) {
	g := SectionProfile("2.1", "OPHELIA", 8, "memory", "flowers")

	assert.Equal(t, "2.1", g.Section)
	assert.Equal(t, 8, g.DecisionBudget)
	assert.Equal(t, core.GrammarSoft, g.Grammar)
	require.Len(t, g.Obligations, 2)
	assert.Equal(t, core.Obligation{Family: "memory", MinHits: 1, MaxHits: 8}, g.Obligations[0])
	assert.True(t, g.Weights.Valid())

	cfg := Default()
	cfg.Corpus = CorpusConfig{Path: "corpus.jsonl", Format: "lines"}
	cfg.Sections = []core.GuidanceProfile{g}
	require.NoError(t, Validate(&cfg))
}
