package transition

import (
	"strings"

	"github.com/centolabs/cento-go/pkg/core"
)

// RejectReason explains why a fragment was filtered out of the candidate
// set. Reasons are stable strings so diagnostics can aggregate them.
type RejectReason string

const (
	ReasonLength                 RejectReason = "length_illegal"
	ReasonReuse                  RejectReason = "reuse"
	ReasonFunctionWordCollision  RejectReason = "function_word_collision"
	ReasonRepeatedEdgeToken      RejectReason = "repeated_edge_token"
	ReasonMidClauseAfterSentence RejectReason = "mid_clause_after_sentence"
	ReasonMeterClash             RejectReason = "meter_clash"
	ReasonRhymeMismatch          RejectReason = "rhyme_mismatch"
	ReasonObligationGated        RejectReason = "obligation_gated"
)

// MinFragmentWords is the hard lower bound on committed fragment length.
const MinFragmentWords = 3

// checkLength enforces word count within [MinFragmentWords, owning line length].
func checkLength(f core.Fragment) (bool, RejectReason) {
	n := f.WordCount()
	if n < MinFragmentWords || n > f.LineWordCount {
		return false, ReasonLength
	}
	return true, ""
}

// checkGrammar applies boundary-tag adjacency rules between the utterance
// tail and the candidate. Strictness "off" disables the filter entirely;
// "soft" keeps only collisions that read as outright errors; "strict" adds
// the clause-boundary rule.
func checkGrammar(prev *core.Fragment, cand core.Fragment, strictness core.GrammarStrictness) (bool, RejectReason) {
	if strictness == core.GrammarOff || prev == nil {
		return true, ""
	}

	if prev.Tags.EndsWithFunctionWord && cand.Tags.StartsWithFunctionWord {
		return false, ReasonFunctionWordCollision
	}

	prevLast := strings.ToLower(prev.Tags.LastToken)
	candFirst := strings.ToLower(cand.Tags.FirstToken)
	if prevLast != "" && candFirst != "" && prevLast == candFirst {
		return false, ReasonRepeatedEdgeToken
	}

	if strictness == core.GrammarStrict && prev.Tags.EndsSentence && cand.Tags.OpensMidClause {
		return false, ReasonMidClauseAfterSentence
	}

	return true, ""
}

// checkMeter rejects candidates whose leading stress repeats the previous
// fragment's trailing stress, breaking iambic alternation at the seam.
func checkMeter(prev *core.Fragment, cand core.Fragment) (bool, RejectReason) {
	if prev == nil {
		return true, ""
	}
	prevPattern := prev.Tags.StressPattern
	candPattern := cand.Tags.StressPattern
	if prevPattern == "" || candPattern == "" {
		// Cannot evaluate without patterns; accept.
		return true, ""
	}
	if prevPattern[len(prevPattern)-1] == candPattern[0] {
		return false, ReasonMeterClash
	}
	return true, ""
}

// rhymeRegistry maps scheme letters to the rhyme class that first filled
// them, rebuilt deterministically from the state on every enumeration.
type rhymeRegistry map[byte]string

func buildRhymeRegistry(state *core.AssemblyState, scheme string) rhymeRegistry {
	registry := make(rhymeRegistry)
	if scheme == "" {
		return registry
	}
	position := 0
	for _, u := range state.Utterances {
		if u.Section != state.Section || !u.Closed {
			continue
		}
		letter := scheme[position%len(scheme)]
		if _, seen := registry[letter]; !seen {
			if f := u.LastFragment(); f != nil && f.Tags.RhymeClass != "" {
				registry[letter] = f.Tags.RhymeClass
			}
		}
		position++
	}
	return registry
}

// checkRhyme enforces the scheme for a candidate that would close the
// current utterance. The first occurrence of a scheme letter accepts any
// rhyme class and registers it for later positions.
func checkRhyme(state *core.AssemblyState, cand core.Fragment, scheme string, registry rhymeRegistry, closes bool) (bool, RejectReason) {
	if scheme == "" || !closes {
		return true, ""
	}

	position := closedUtterances(state)
	letter := scheme[position%len(scheme)]
	required, seen := registry[letter]
	if !seen || required == "" {
		return true, ""
	}
	if cand.Tags.RhymeClass == "" {
		// No rhyme class available; accept rather than over-prune.
		return true, ""
	}
	if cand.Tags.RhymeClass != required {
		return false, ReasonRhymeMismatch
	}
	return true, ""
}

func closedUtterances(state *core.AssemblyState) int {
	n := 0
	for _, u := range state.Utterances {
		if u.Section == state.Section && u.Closed {
			n++
		}
	}
	return n
}

// sectionDecisions counts decisions already spent in the current section.
// Every decision commits exactly one fragment.
func sectionDecisions(state *core.AssemblyState) int {
	n := 0
	for _, u := range state.Utterances {
		if u.Section == state.Section {
			n += len(u.Fragments)
		}
	}
	return n
}

// starvedFamilies returns the obligation families that must be hit by every
// remaining decision: those whose deficit equals or exceeds the remaining
// decision slots in the section.
func starvedFamilies(state *core.AssemblyState, guidance core.GuidanceProfile) []string {
	remaining := guidance.DecisionBudget - sectionDecisions(state)
	var starved []string
	for _, o := range guidance.Obligations {
		deficit := o.MinHits - state.SectionHits(o.Family)
		if deficit > 0 && deficit >= remaining {
			starved = append(starved, o.Family)
		}
	}
	return starved
}

// hasFamily reports whether the fragment carries the given family tag.
func hasFamily(f core.Fragment, family string) bool {
	for _, have := range f.Tags.Families {
		if have == family {
			return true
		}
	}
	return false
}

// checkObligation hard-excludes candidates lacking a starved family. This is
// enforcement, not scoring: an obligation-starved section admits only
// candidates that reduce the deficit.
func checkObligation(cand core.Fragment, starved []string) (bool, RejectReason) {
	for _, family := range starved {
		if !hasFamily(cand, family) {
			return false, ReasonObligationGated
		}
	}
	return true, ""
}

// ClosesUtterance decides the terminal condition for the utterance chain: a
// sentence-ending fragment closes it, as does reaching the per-utterance
// fragment budget.
func ClosesUtterance(state *core.AssemblyState, cand core.Fragment, guidance core.GuidanceProfile) bool {
	if cand.Tags.EndsSentence {
		return true
	}
	budget := guidance.MaxFragmentsPerUtterance
	if budget <= 0 {
		budget = 1
	}
	chain := 1
	if open := state.OpenUtterance(); open != nil {
		chain = len(open.Fragments) + 1
	}
	return chain >= budget
}
