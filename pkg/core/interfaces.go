package core

import "context"

// StateContext is the read-only view of search state handed to the external
// fragment store when asking for nearby candidates.
type StateContext struct {
	Section      string
	Speaker      string
	TailFragment string
	TailTokens   []string
	FamiliesSeen []string
}

// QueryFilters narrows a fragment store query.
type QueryFilters struct {
	MinWords int
	Families []string
	Limit    int
}

// FragmentStore is the read-only catalog of candidate fragments. The engine
// never writes to it.
type FragmentStore interface {
	// FetchCandidatesNear returns candidate fragments for the given state
	// context in a stable order.
	FetchCandidatesNear(ctx context.Context, state StateContext, filters QueryFilters) ([]Fragment, error)

	// FetchByExactRange returns the fragment covering exactly (lineID, r),
	// or nil when the store has no such fragment.
	FetchByExactRange(ctx context.Context, lineID string, r WordRange) (*Fragment, error)
}

// Verdict is the judgment outcome for a committed window.
type Verdict string

const (
	VerdictAccept   Verdict = "accept"
	VerdictAdjust   Verdict = "adjust"
	VerdictRollback Verdict = "rollback"
)

// AvoidPattern describes a path pattern the judgment wants disfavored after a
// rollback. FragmentIDs name the offending tail choices.
type AvoidPattern struct {
	Description string   `json:"description"`
	FragmentIDs []string `json:"fragment_ids"`
}

// JudgmentRequest is an ordered window of committed utterances submitted at a
// checkpoint boundary.
type JudgmentRequest struct {
	WindowID string      `json:"window_id"`
	Section  string      `json:"section"`
	Speaker  string      `json:"speaker"`
	Window   []Utterance `json:"window"`
}

// JudgmentReport is the structured verdict for a window. WeightDeltas apply
// prospectively to subsequent decisions; TargetCheckpoint of -1 means the
// most recent checkpoint.
type JudgmentReport struct {
	Verdict          Verdict            `json:"verdict"`
	WeightDeltas     map[string]float64 `json:"weight_deltas,omitempty"`
	KnobChanges      map[string]string  `json:"knob_changes,omitempty"`
	TargetCheckpoint int                `json:"target_checkpoint"`
	Avoid            *AvoidPattern      `json:"avoid,omitempty"`
	Notes            []string           `json:"notes,omitempty"`
}

// Judgment is the external critic consulted at checkpoint boundaries. Calls
// must be made with a bounded timeout; a failed or timed-out call degrades to
// accept-unchanged at the caller.
type Judgment interface {
	EvaluateWindow(ctx context.Context, req JudgmentRequest) (*JudgmentReport, error)
}

// ChoiceOption is one shortlist entry presented to the chooser.
type ChoiceOption struct {
	FragmentID string  `json:"fragment_id"`
	Score      float64 `json:"score"`
	Preview    string  `json:"preview"`
}

// Chooser selects among an explicit shortlist when the beam's top candidates
// are too close in score. It never invents new candidates.
type Chooser interface {
	Choose(ctx context.Context, windowID string, options []ChoiceOption) (string, error)
}
