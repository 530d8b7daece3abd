// Package scoring converts a candidate fragment plus the current assembly
// state into a weighted score breakdown. Scoring is deterministic, local,
// and side-effect-free: the same candidate, state, and guidance always
// produce the same result.
package scoring

import (
	"math"

	"github.com/centolabs/cento-go/pkg/core"
)

// PenaltyFunc reads the accumulated negative-memory penalty for a failure
// signature. A nil PenaltyFunc means no penalties apply.
type PenaltyFunc func(signature string) float64

// idealSyllables is the pentameter target used for the voice-fit dimension.
const idealSyllables = 10

// Score evaluates one candidate against the current state under the given
// guidance. The negative-memory penalty is subtracted from the total but
// never forbids a candidate: a penalized choice remains selectable when no
// better option exists.
func Score(cand core.Fragment, state *core.AssemblyState, guidance core.GuidanceProfile, penalty PenaltyFunc) core.ScoreResult {
	hits := familyHits(cand, guidance)

	breakdown := core.ScoreBreakdown{
		SemanticFit:          semanticFit(cand, hits),
		VoiceFit:             voiceFit(cand),
		ContinuityCoverage:   continuityCoverage(state, guidance, hits),
		NoveltyPenalty:       noveltyPenalty(cand, state),
		RelationshipModifier: relationshipModifier(cand, state),
	}

	w := guidance.Weights
	total := w.SemanticFit*breakdown.SemanticFit +
		w.VoiceFit*breakdown.VoiceFit +
		w.ContinuityCoverage*breakdown.ContinuityCoverage -
		w.NoveltyPenalty*breakdown.NoveltyPenalty +
		w.RelationshipModifier*breakdown.RelationshipModifier

	if penalty != nil {
		total -= penalty(core.FailureSignature(state, cand.ID))
	}

	return core.ScoreResult{Total: total, Breakdown: breakdown, FamilyHits: hits}
}

// semanticFit rewards obligation-family presence, normalized by fragment
// size so long fragments don't win on bulk alone.
func semanticFit(cand core.Fragment, hits []string) float64 {
	if len(hits) == 0 {
		return 0
	}
	return float64(len(hits)) / math.Sqrt(float64(cand.WordCount()))
}

// voiceFit rewards proximity to the pentameter syllable target. Fragments
// without syllable data score neutral.
func voiceFit(cand core.Fragment) float64 {
	if cand.Tags.SyllableCount == 0 {
		return 0.5
	}
	distance := math.Abs(float64(cand.Tags.SyllableCount - idealSyllables))
	return math.Max(0, 1-distance/idealSyllables)
}

// continuityCoverage rewards hitting an obligation that is still unmet and
// applies diminishing returns past the section's target ceiling so one motif
// cannot crowd out the passage.
func continuityCoverage(state *core.AssemblyState, guidance core.GuidanceProfile, hits []string) float64 {
	var coverage float64
	for _, family := range hits {
		o, ok := guidance.ObligationFor(family)
		if !ok {
			continue
		}
		have := state.SectionHits(family)
		switch {
		case have < o.MinHits:
			coverage += 1.0
		case o.MaxHits > 0 && have >= o.MaxHits:
			over := have - o.MaxHits + 1
			coverage += 1.0 / float64(1+over*2)
		default:
			coverage += 0.5
		}
	}
	return coverage
}

// noveltyPenalty measures repeated reliance on the same stylistic tags
// within the rolling window, independent of the hard reuse rule.
func noveltyPenalty(cand core.Fragment, state *core.AssemblyState) float64 {
	if len(cand.Tags.StyleTags) == 0 {
		return 0
	}
	repeats := windowRepeats(cand, state.RecentStyleTags)
	return float64(repeats) / float64(len(cand.Tags.StyleTags))
}

// relationshipModifier rewards thematic linkage with the utterance tail:
// shared families bind a continuation to what was just said.
func relationshipModifier(cand core.Fragment, state *core.AssemblyState) float64 {
	tail := state.TailFragment()
	if tail == nil || len(tail.Tags.Families) == 0 {
		return 0
	}
	overlap := familyOverlap(*tail, cand)
	return float64(overlap) / float64(len(tail.Tags.Families))
}
