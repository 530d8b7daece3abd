package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centolabs/cento-go/pkg/core"
)

func makeFragment(id string, words int) core.Fragment {
	return core.Fragment{
		ID:            id,
		LineID:        "line-" + id,
		Range:         core.WordRange{Start: 0, End: words - 1},
		Text:          "alas poor yorick i knew him"[:11],
		LineWordCount: words + 2,
	}
}

func guidanceWith(obligations ...core.Obligation) core.GuidanceProfile {
	return core.GuidanceProfile{
		Section:        "1.1",
		DecisionBudget: 8,
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

func freshState() *core.AssemblyState {
	s := core.NewAssemblyState("doc-1")
	s.EnterSection("1.1", "HAMLET")
	return s
}

func TestScorePure(t *testing.T) {
	cand := makeFragment("f1", 4)
	cand.Tags.Families = []string{"mortality"}
	state := freshState()
	guidance := guidanceWith(core.Obligation{Family: "mortality", MinHits: 1, MaxHits: 3})

	first := Score(cand, state, guidance, nil)
	second := Score(cand, state, guidance, nil)

	assert.Equal(t, first, second)
	// Scoring must not mutate the state.
	assert.Equal(t, 0, state.Decision)
	assert.Equal(t, 0, state.SectionHits("mortality"))
}

func TestFamilyHitsFromTagsAndText(t *testing.T) {
	byTag := makeFragment("f1", 4)
	byTag.Tags.Families = []string{"Mortality"}

	byText := makeFragment("f2", 4)
	byText.Text = "where be your GRAVE gibes now"

	neither := makeFragment("f3", 4)

	guidance := guidanceWith(
		core.Obligation{Family: "mortality", MinHits: 1, MaxHits: 3},
		core.Obligation{Family: "grave", MinHits: 1, MaxHits: 3},
	)

	assert.Equal(t, []string{"mortality"}, Score(byTag, freshState(), guidance, nil).FamilyHits)
	assert.Equal(t, []string{"grave"}, Score(byText, freshState(), guidance, nil).FamilyHits)
	assert.Empty(t, Score(neither, freshState(), guidance, nil).FamilyHits)
}

func TestContinuityDiminishingReturns(t *testing.T) {
	cand := makeFragment("f1", 4)
	cand.Tags.Families = []string{"mortality"}
	guidance := guidanceWith(core.Obligation{Family: "mortality", MinHits: 1, MaxHits: 2})

	unmet := freshState()
	unmetScore := Score(cand, unmet, guidance, nil)

	// Satisfy the minimum, then exceed the ceiling.
	met := freshState()
	met.Commit(cand, core.ScoreResult{FamilyHits: []string{"mortality"}}, true)
	metScore := Score(cand, met, guidance, nil)

	saturated := freshState()
	for i := 0; i < 3; i++ {
		saturated.Commit(cand, core.ScoreResult{FamilyHits: []string{"mortality"}}, true)
	}
	saturatedScore := Score(cand, saturated, guidance, nil)

	assert.Greater(t, unmetScore.Breakdown.ContinuityCoverage, metScore.Breakdown.ContinuityCoverage)
	assert.Greater(t, metScore.Breakdown.ContinuityCoverage, saturatedScore.Breakdown.ContinuityCoverage)
	assert.Greater(t, saturatedScore.Breakdown.ContinuityCoverage, 0.0, "ceiling dampens, never zeroes")
}

func TestNoveltyPenaltyRollingWindow(t *testing.T) {
	cand := makeFragment("f1", 4)
	cand.Tags.StyleTags = []string{"apostrophe", "anaphora"}
	guidance := guidanceWith()

	fresh := Score(cand, freshState(), guidance, nil)
	assert.Zero(t, fresh.Breakdown.NoveltyPenalty)

	// Fill the window with one of the tags.
	state := freshState()
	repeat := makeFragment("f2", 4)
	repeat.Tags.StyleTags = []string{"apostrophe"}
	state.Commit(repeat, core.ScoreResult{}, true)

	half := Score(cand, state, guidance, nil)
	assert.InDelta(t, 0.5, half.Breakdown.NoveltyPenalty, 1e-9)
	assert.Less(t, half.Total, fresh.Total)
}

func TestRelationshipModifier(t *testing.T) {
	tail := makeFragment("tail", 4)
	tail.Tags.Families = []string{"night", "stars"}

	linked := makeFragment("linked", 4)
	linked.Tags.Families = []string{"night"}

	unlinked := makeFragment("unlinked", 4)
	unlinked.Tags.Families = []string{"dawn"}

	state := freshState()
	state.Commit(tail, core.ScoreResult{}, false)
	guidance := guidanceWith()

	assert.InDelta(t, 0.5, Score(linked, state, guidance, nil).Breakdown.RelationshipModifier, 1e-9)
	assert.Zero(t, Score(unlinked, state, guidance, nil).Breakdown.RelationshipModifier)
}

func TestNegativeMemoryPenaltySubtracted(t *testing.T) {
	cand := makeFragment("f1", 4)
	state := freshState()
	guidance := guidanceWith()

	base := Score(cand, state, guidance, nil)

	sig := core.FailureSignature(state, cand.ID)
	penalized := Score(cand, state, guidance, func(s string) float64 {
		require.Equal(t, sig, s)
		return 5.0
	})

	assert.InDelta(t, base.Total-5.0, penalized.Total, 1e-9)
	// The breakdown itself is unchanged; the penalty only shifts the total.
	assert.Equal(t, base.Breakdown, penalized.Breakdown)
}

func TestWeightsScaleDimensions(t *testing.T) {
	cand := makeFragment("f1", 4)
	cand.Tags.Families = []string{"mortality"}
	cand.Tags.SyllableCount = 10
	state := freshState()

	guidance := guidanceWith(core.Obligation{Family: "mortality", MinHits: 1, MaxHits: 3})
	guidance.Weights = core.Weights{SemanticFit: 2}

	result := Score(cand, state, guidance, nil)
	assert.InDelta(t, 2*result.Breakdown.SemanticFit, result.Total, 1e-9)
}
