package core

import "strings"

// Utterance is one spoken output line, composed of one or more committed
// fragments in order.
type Utterance struct {
	Section   string     `json:"section"`
	Speaker   string     `json:"speaker"`
	Fragments []Fragment `json:"fragments"`
	Closed    bool       `json:"closed"`
}

// Text joins the fragment texts into the literal utterance.
func (u Utterance) Text() string {
	parts := make([]string, 0, len(u.Fragments))
	for _, f := range u.Fragments {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, " ")
}

// LastFragment returns the trailing fragment, or nil for an empty utterance.
func (u Utterance) LastFragment() *Fragment {
	if len(u.Fragments) == 0 {
		return nil
	}
	return &u.Fragments[len(u.Fragments)-1]
}

// ScoreBreakdown is the per-dimension decomposition of a candidate score.
type ScoreBreakdown struct {
	SemanticFit          float64 `json:"semantic_fit"`
	VoiceFit             float64 `json:"voice_fit"`
	ContinuityCoverage   float64 `json:"continuity_coverage"`
	NoveltyPenalty       float64 `json:"novelty_penalty"`
	RelationshipModifier float64 `json:"relationship_modifier"`
}

// ScoreResult bundles the weighted total with its breakdown and the
// obligation families the candidate would hit.
type ScoreResult struct {
	Total      float64        `json:"total"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	FamilyHits []string       `json:"family_hits"`
}

// AssemblyState is the evolving document for one in-progress search path.
// It is owned exclusively by that path and copied, never aliased, when the
// beam forks.
type AssemblyState struct {
	DocumentID string      `json:"document_id"`
	Section    string      `json:"section"`
	Speaker    string      `json:"speaker"`
	Utterances []Utterance `json:"utterances"`

	// Decision is the monotonically increasing decision counter.
	Decision int `json:"decision"`

	// ObligationHits maps section -> family -> hit count.
	ObligationHits map[string]map[string]int `json:"obligation_hits"`

	// Score is the cumulative path score.
	Score float64 `json:"score"`

	// RecentStyleTags is the rolling window of stylistic tags used for
	// novelty moderation, most recent last.
	RecentStyleTags []string `json:"recent_style_tags"`
}

// NewAssemblyState creates an empty state for a document.
func NewAssemblyState(documentID string) *AssemblyState {
	return &AssemblyState{
		DocumentID:     documentID,
		ObligationHits: make(map[string]map[string]int),
	}
}

// Clone produces a deep copy safe to mutate independently.
func (s *AssemblyState) Clone() *AssemblyState {
	clone := &AssemblyState{
		DocumentID:      s.DocumentID,
		Section:         s.Section,
		Speaker:         s.Speaker,
		Decision:        s.Decision,
		Score:           s.Score,
		Utterances:      make([]Utterance, len(s.Utterances)),
		ObligationHits:  make(map[string]map[string]int, len(s.ObligationHits)),
		RecentStyleTags: append([]string(nil), s.RecentStyleTags...),
	}
	for i, u := range s.Utterances {
		clone.Utterances[i] = Utterance{
			Section:   u.Section,
			Speaker:   u.Speaker,
			Closed:    u.Closed,
			Fragments: append([]Fragment(nil), u.Fragments...),
		}
	}
	for section, hits := range s.ObligationHits {
		inner := make(map[string]int, len(hits))
		for family, n := range hits {
			inner[family] = n
		}
		clone.ObligationHits[section] = inner
	}
	return clone
}

// OpenUtterance returns the trailing utterance if it still accepts
// continuation fragments, or nil.
func (s *AssemblyState) OpenUtterance() *Utterance {
	if len(s.Utterances) == 0 {
		return nil
	}
	last := &s.Utterances[len(s.Utterances)-1]
	if last.Closed {
		return nil
	}
	return last
}

// TailFragment returns the most recently committed fragment regardless of
// utterance boundaries, or nil for an empty state.
func (s *AssemblyState) TailFragment() *Fragment {
	for i := len(s.Utterances) - 1; i >= 0; i-- {
		if f := s.Utterances[i].LastFragment(); f != nil {
			return f
		}
	}
	return nil
}

// SectionHits returns the obligation hit count for a family in the current
// section.
func (s *AssemblyState) SectionHits(family string) int {
	if hits, ok := s.ObligationHits[s.Section]; ok {
		return hits[family]
	}
	return 0
}

// EnterSection positions the state at the start of a new section.
func (s *AssemblyState) EnterSection(section, speaker string) {
	if open := s.OpenUtterance(); open != nil {
		open.Closed = true
	}
	s.Section = section
	s.Speaker = speaker
	if _, ok := s.ObligationHits[section]; !ok {
		s.ObligationHits[section] = make(map[string]int)
	}
}

// Commit appends a fragment to the open utterance (or starts a new one),
// advances the decision counter, and folds in the score result. closeAfter
// marks the utterance terminal after this fragment.
func (s *AssemblyState) Commit(f Fragment, score ScoreResult, closeAfter bool) {
	open := s.OpenUtterance()
	if open == nil {
		s.Utterances = append(s.Utterances, Utterance{Section: s.Section, Speaker: s.Speaker})
		open = &s.Utterances[len(s.Utterances)-1]
	}
	open.Fragments = append(open.Fragments, f)
	if closeAfter {
		open.Closed = true
	}

	s.Decision++
	s.Score += score.Total

	hits := s.ObligationHits[s.Section]
	if hits == nil {
		hits = make(map[string]int)
		s.ObligationHits[s.Section] = hits
	}
	for _, family := range score.FamilyHits {
		hits[family]++
	}

	s.RecentStyleTags = append(s.RecentStyleTags, f.Tags.StyleTags...)
	if n := len(s.RecentStyleTags); n > StyleWindowSize {
		s.RecentStyleTags = append([]string(nil), s.RecentStyleTags[n-StyleWindowSize:]...)
	}
}

// StyleWindowSize is the rolling-window length for novelty moderation.
const StyleWindowSize = 24

// Candidate is a proposed next fragment for one beam path, transient until
// the decision resolves.
type Candidate struct {
	Fragment  Fragment
	PathIndex int // beam index of the originating path at enumeration time
	Score     ScoreResult
}
