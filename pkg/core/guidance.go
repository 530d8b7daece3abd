package core

import "math"

// GrammarStrictness controls how hard the adjacency filter is enforced.
type GrammarStrictness string

const (
	GrammarOff    GrammarStrictness = "off"
	GrammarSoft   GrammarStrictness = "soft"
	GrammarStrict GrammarStrictness = "strict"
)

// MeterMode toggles the meter/rhyme feasibility filter.
type MeterMode string

const (
	MeterOff MeterMode = "off"
	MeterOn  MeterMode = "on"
)

// Obligation is a required occurrence band for a lexical/semantic family
// within one section.
type Obligation struct {
	Family  string `json:"family" yaml:"family" validate:"required"`
	MinHits int    `json:"min_hits" yaml:"min_hits" validate:"gte=0"`
	MaxHits int    `json:"max_hits" yaml:"max_hits" validate:"gte=0"`
}

// Weights holds the per-dimension scoring weights supplied by the planner.
// All weights must be finite and non-negative.
type Weights struct {
	SemanticFit          float64 `json:"semantic_fit" yaml:"semantic_fit" validate:"gte=0"`
	VoiceFit             float64 `json:"voice_fit" yaml:"voice_fit" validate:"gte=0"`
	ContinuityCoverage   float64 `json:"continuity_coverage" yaml:"continuity_coverage" validate:"gte=0"`
	NoveltyPenalty       float64 `json:"novelty_penalty" yaml:"novelty_penalty" validate:"gte=0"`
	RelationshipModifier float64 `json:"relationship_modifier" yaml:"relationship_modifier" validate:"gte=0"`
}

// Valid reports whether every weight is finite and non-negative.
func (w Weights) Valid() bool {
	for _, v := range []float64{w.SemanticFit, w.VoiceFit, w.ContinuityCoverage, w.NoveltyPenalty, w.RelationshipModifier} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// GuidanceProfile is the immutable per-section guidance consumed at section
// entry: constraint knobs for the enumerator and scoring priors for the
// scoring function.
type GuidanceProfile struct {
	Section        string            `json:"section" yaml:"section" validate:"required"`
	Speaker        string            `json:"speaker" yaml:"speaker"`
	DecisionBudget int               `json:"decision_budget" yaml:"decision_budget" validate:"gte=1"`
	Grammar        GrammarStrictness `json:"grammar" yaml:"grammar" validate:"omitempty,oneof=off soft strict"`
	Meter          MeterMode         `json:"meter" yaml:"meter" validate:"omitempty,oneof=off on"`
	RhymeScheme    string            `json:"rhyme_scheme" yaml:"rhyme_scheme"`
	Obligations    []Obligation      `json:"obligations" yaml:"obligations" validate:"dive"`
	Weights        Weights           `json:"weights" yaml:"weights"`

	// MaxFragmentsPerUtterance bounds the per-utterance fragment chain; the
	// single-fragment case is budget 1.
	MaxFragmentsPerUtterance int `json:"max_fragments_per_utterance" yaml:"max_fragments_per_utterance"`
}

// ObligationFor returns the obligation configured for a family, if any.
func (g GuidanceProfile) ObligationFor(family string) (Obligation, bool) {
	for _, o := range g.Obligations {
		if o.Family == family {
			return o, true
		}
	}
	return Obligation{}, false
}
