package transition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/ledger"
)

// stubStore returns a fixed fragment list in insertion order.
type stubStore struct {
	fragments []core.Fragment
}

func (s *stubStore) FetchCandidatesNear(_ context.Context, _ core.StateContext, _ core.QueryFilters) ([]core.Fragment, error) {
	return append([]core.Fragment(nil), s.fragments...), nil
}

func (s *stubStore) FetchByExactRange(_ context.Context, lineID string, r core.WordRange) (*core.Fragment, error) {
	for _, f := range s.fragments {
		if f.LineID == lineID && f.Range == r {
			copied := f
			return &copied, nil
		}
	}
	return nil, nil
}

func makeFragment(id, lineID string, start, end, lineWords int) core.Fragment {
	return core.Fragment{
		ID:            id,
		LineID:        lineID,
		Range:         core.WordRange{Start: start, End: end},
		Text:          "some literal text here",
		LineWordCount: lineWords,
	}
}

func freshState() *core.AssemblyState {
	s := core.NewAssemblyState("doc-1")
	s.EnterSection("1.1", "HAMLET")
	return s
}

func rejectionReasons(result *Result) map[string]RejectReason {
	reasons := make(map[string]RejectReason)
	for _, r := range result.Rejections {
		reasons[r.FragmentID] = r.Reason
	}
	return reasons
}

func TestLengthFilter(t *testing.T) {
	store := &stubStore{fragments: []core.Fragment{
		makeFragment("too-short", "l1", 0, 1, 10), // 2 words
		makeFragment("legal", "l2", 0, 2, 10),     // 3 words
		makeFragment("too-long", "l3", 0, 9, 8),   // 10 words > 8-word line
	}}

	result, err := NewEnumerator(store).Enumerate(context.Background(), freshState(), ledger.New(), core.GuidanceProfile{DecisionBudget: 6})
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "legal", result.Candidates[0].ID)

	reasons := rejectionReasons(result)
	assert.Equal(t, ReasonLength, reasons["too-short"])
	assert.Equal(t, ReasonLength, reasons["too-long"])
}

func TestReuseFilter(t *testing.T) {
	store := &stubStore{fragments: []core.Fragment{
		makeFragment("spent", "l1", 0, 3, 10),
		makeFragment("overlapping", "l1", 2, 5, 10),
		makeFragment("free", "l1", 4, 7, 10),
	}}

	led := ledger.New()
	require.NoError(t, led.Reserve(core.ReuseKey{LineID: "l1", Range: core.WordRange{Start: 0, End: 3}}))

	result, err := NewEnumerator(store).Enumerate(context.Background(), freshState(), led, core.GuidanceProfile{DecisionBudget: 6})
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "free", result.Candidates[0].ID)

	reasons := rejectionReasons(result)
	assert.Equal(t, ReasonReuse, reasons["spent"])
	assert.Equal(t, ReasonReuse, reasons["overlapping"])
}

func TestGrammarFilter(t *testing.T) {
	prev := makeFragment("prev", "l0", 0, 3, 10)
	prev.Tags.EndsWithFunctionWord = true
	prev.Tags.LastToken = "the"
	prev.Tags.EndsSentence = true

	collide := makeFragment("collide", "l1", 0, 3, 10)
	collide.Tags.StartsWithFunctionWord = true

	repeated := makeFragment("repeated", "l2", 0, 3, 10)
	repeated.Tags.FirstToken = "The"

	midClause := makeFragment("mid-clause", "l3", 0, 3, 10)
	midClause.Tags.OpensMidClause = true

	clean := makeFragment("clean", "l4", 0, 3, 10)
	clean.Tags.FirstToken = "what"

	store := &stubStore{fragments: []core.Fragment{collide, repeated, midClause, clean}}

	tests := []struct {
		name       string
		strictness core.GrammarStrictness
		want       []string
	}{
		{"off admits everything", core.GrammarOff, []string{"collide", "repeated", "mid-clause", "clean"}},
		{"soft drops collisions", core.GrammarSoft, []string{"mid-clause", "clean"}},
		{"strict drops clause breaks too", core.GrammarStrict, []string{"clean"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := freshState()
			state.Commit(prev, core.ScoreResult{}, false)

			result, err := NewEnumerator(store).Enumerate(context.Background(), state, ledger.New(),
				core.GuidanceProfile{DecisionBudget: 6, Grammar: tt.strictness, MaxFragmentsPerUtterance: 4})
			require.NoError(t, err)

			got := make([]string, 0, len(result.Candidates))
			for _, c := range result.Candidates {
				got = append(got, c.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMeterFilter(t *testing.T) {
	prev := makeFragment("prev", "l0", 0, 3, 10)
	prev.Tags.StressPattern = "0101"

	clash := makeFragment("clash", "l1", 0, 3, 10)
	clash.Tags.StressPattern = "1010"

	flows := makeFragment("flows", "l2", 0, 3, 10)
	flows.Tags.StressPattern = "0101"

	unknown := makeFragment("unknown", "l3", 0, 3, 10)

	store := &stubStore{fragments: []core.Fragment{clash, flows, unknown}}

	state := freshState()
	state.Commit(prev, core.ScoreResult{}, false)

	result, err := NewEnumerator(store).Enumerate(context.Background(), state, ledger.New(),
		core.GuidanceProfile{DecisionBudget: 6, Meter: core.MeterOn, MaxFragmentsPerUtterance: 4})
	require.NoError(t, err)

	got := make([]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		got = append(got, c.ID)
	}
	// Prev ends unstressed-stressed; a candidate starting stressed clashes.
	assert.Equal(t, []string{"flows", "unknown"}, got)
	assert.Equal(t, ReasonMeterClash, rejectionReasons(result)["clash"])

	// Meter off admits the clash.
	result, err = NewEnumerator(store).Enumerate(context.Background(), state, ledger.New(),
		core.GuidanceProfile{DecisionBudget: 6, Meter: core.MeterOff, MaxFragmentsPerUtterance: 4})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 3)
}

func TestRhymeSchemeFilter(t *testing.T) {
	// Close two utterances to register scheme letters A and B.
	first := makeFragment("first", "l0", 0, 3, 10)
	first.Tags.EndsSentence = true
	first.Tags.RhymeClass = "AY_D"

	second := makeFragment("second", "l1", 0, 3, 10)
	second.Tags.EndsSentence = true
	second.Tags.RhymeClass = "EE_P"

	state := freshState()
	state.Commit(first, core.ScoreResult{}, true)
	state.Commit(second, core.ScoreResult{}, true)

	// Position 2 of ABAB requires letter A's class.
	matches := makeFragment("matches", "l2", 0, 3, 10)
	matches.Tags.EndsSentence = true
	matches.Tags.RhymeClass = "AY_D"

	mismatches := makeFragment("mismatches", "l3", 0, 3, 10)
	mismatches.Tags.EndsSentence = true
	mismatches.Tags.RhymeClass = "OH_N"

	open := makeFragment("open", "l4", 0, 3, 10)
	open.Tags.RhymeClass = "OH_N" // does not close the utterance, exempt

	store := &stubStore{fragments: []core.Fragment{matches, mismatches, open}}

	result, err := NewEnumerator(store).Enumerate(context.Background(), state, ledger.New(),
		core.GuidanceProfile{DecisionBudget: 8, Meter: core.MeterOn, RhymeScheme: "ABAB", MaxFragmentsPerUtterance: 4})
	require.NoError(t, err)

	got := make([]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		got = append(got, c.ID)
	}
	assert.Equal(t, []string{"matches", "open"}, got)
	assert.Equal(t, ReasonRhymeMismatch, rejectionReasons(result)["mismatches"])
}

func TestObligationGating(t *testing.T) {
	withFamily := makeFragment("with-family", "l1", 0, 3, 10)
	withFamily.Tags.Families = []string{"mortality"}

	without := makeFragment("without", "l2", 0, 3, 10)

	store := &stubStore{fragments: []core.Fragment{withFamily, without}}

	guidance := core.GuidanceProfile{
		DecisionBudget: 4,
		Obligations:    []core.Obligation{{Family: "mortality", MinHits: 2, MaxHits: 4}},
	}

	// Fresh section: 4 slots remain for a deficit of 2, not starved yet.
	result, err := NewEnumerator(store).Enumerate(context.Background(), freshState(), ledger.New(), guidance)
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 2)

	// Spend two decisions without hitting the family: 2 slots left for a
	// deficit of 2, so gating turns on.
	state := freshState()
	state.Commit(makeFragment("spent-1", "l8", 0, 3, 10), core.ScoreResult{}, true)
	state.Commit(makeFragment("spent-2", "l9", 0, 3, 10), core.ScoreResult{}, true)

	result, err = NewEnumerator(store).Enumerate(context.Background(), state, ledger.New(), guidance)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "with-family", result.Candidates[0].ID)
	assert.Equal(t, ReasonObligationGated, rejectionReasons(result)["without"])
}

func TestEnumerateDeterministic(t *testing.T) {
	store := &stubStore{fragments: []core.Fragment{
		makeFragment("a", "l1", 0, 3, 10),
		makeFragment("b", "l2", 0, 3, 10),
		makeFragment("c", "l3", 0, 3, 10),
	}}

	guidance := core.GuidanceProfile{DecisionBudget: 6}
	first, err := NewEnumerator(store).Enumerate(context.Background(), freshState(), ledger.New(), guidance)
	require.NoError(t, err)
	second, err := NewEnumerator(store).Enumerate(context.Background(), freshState(), ledger.New(), guidance)
	require.NoError(t, err)

	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, first.Rejections, second.Rejections)
}

func TestClosesUtterance(t *testing.T) {
	guidance := core.GuidanceProfile{MaxFragmentsPerUtterance: 2}

	ending := makeFragment("ending", "l1", 0, 3, 10)
	ending.Tags.EndsSentence = true
	assert.True(t, ClosesUtterance(freshState(), ending, guidance))

	continuing := makeFragment("continuing", "l2", 0, 3, 10)
	assert.False(t, ClosesUtterance(freshState(), continuing, guidance))

	// One open fragment plus this one reaches the budget of 2.
	state := freshState()
	state.Commit(makeFragment("open", "l3", 0, 3, 10), core.ScoreResult{}, false)
	assert.True(t, ClosesUtterance(state, continuing, guidance))

	// Budget zero defaults to single-fragment utterances.
	assert.True(t, ClosesUtterance(freshState(), continuing, core.GuidanceProfile{}))
}
