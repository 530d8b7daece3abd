// Package transition enumerates the legal next-fragment candidate set for an
// assembly state, with an explainable rejection reason for every fragment it
// filters out.
package transition

import (
	"context"
	"sort"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
	"github.com/centolabs/cento-go/pkg/ledger"
	"github.com/centolabs/cento-go/pkg/logging"
)

// Rejection pairs a filtered fragment with the first filter that rejected it.
type Rejection struct {
	FragmentID string
	Reason     RejectReason
}

// Result is the outcome of one enumeration: the ordered legal candidate set
// and the parallel rejection list.
type Result struct {
	Candidates []core.Fragment
	Rejections []Rejection
}

// Enumerator produces legal candidates. It holds no per-document state:
// given identical state, ledger contents, and guidance, the candidate set
// and its ordering are identical across runs.
type Enumerator struct {
	store  core.FragmentStore
	logger *logging.Logger
}

// NewEnumerator creates an enumerator over the given fragment store.
func NewEnumerator(store core.FragmentStore) *Enumerator {
	return &Enumerator{
		store:  store,
		logger: logging.GetLogger(),
	}
}

// Enumerate applies the hard filters in fixed order: length, reuse, grammar
// adjacency, meter/rhyme feasibility, obligation gating. Filters
// short-circuit per fragment; the recorded reason is the first that fired.
func (e *Enumerator) Enumerate(ctx context.Context, state *core.AssemblyState, led *ledger.ReuseLedger, guidance core.GuidanceProfile) (*Result, error) {
	if err := errors.CheckContext(ctx, "enumerate"); err != nil {
		return nil, err
	}

	fetched, err := e.store.FetchCandidatesNear(ctx, stateContext(state), core.QueryFilters{MinWords: MinFragmentWords})
	if err != nil {
		return nil, errors.Wrap(err, errors.ResourceNotFound, "fragment store query failed")
	}

	prev := state.TailFragment()
	registry := buildRhymeRegistry(state, guidance.RhymeScheme)
	starved := starvedFamilies(state, guidance)

	result := &Result{}
	for _, cand := range fetched {
		if ok, reason := checkLength(cand); !ok {
			result.Rejections = append(result.Rejections, Rejection{cand.ID, reason})
			continue
		}
		if !led.IsAvailable(cand.ReuseKey()) {
			result.Rejections = append(result.Rejections, Rejection{cand.ID, ReasonReuse})
			continue
		}
		if ok, reason := checkGrammar(prev, cand, guidance.Grammar); !ok {
			result.Rejections = append(result.Rejections, Rejection{cand.ID, reason})
			continue
		}
		if guidance.Meter == core.MeterOn {
			if ok, reason := checkMeter(prev, cand); !ok {
				result.Rejections = append(result.Rejections, Rejection{cand.ID, reason})
				continue
			}
			closes := ClosesUtterance(state, cand, guidance)
			if ok, reason := checkRhyme(state, cand, guidance.RhymeScheme, registry, closes); !ok {
				result.Rejections = append(result.Rejections, Rejection{cand.ID, reason})
				continue
			}
		}
		if ok, reason := checkObligation(cand, starved); !ok {
			result.Rejections = append(result.Rejections, Rejection{cand.ID, reason})
			continue
		}
		result.Candidates = append(result.Candidates, cand)
	}

	e.logger.Debug(ctx, "enumerated %d candidates, rejected %d", len(result.Candidates), len(result.Rejections))
	return result, nil
}

func stateContext(state *core.AssemblyState) core.StateContext {
	sc := core.StateContext{
		Section: state.Section,
		Speaker: state.Speaker,
	}
	if f := state.TailFragment(); f != nil {
		sc.TailFragment = f.ID
		sc.TailTokens = f.Tokens()
	}
	for family, n := range state.ObligationHits[state.Section] {
		if n > 0 {
			sc.FamiliesSeen = append(sc.FamiliesSeen, family)
		}
	}
	sort.Strings(sc.FamiliesSeen)
	return sc
}
