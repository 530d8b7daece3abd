// Package corpus loads fragment catalogs and serves them to the engine
// through the read-only FragmentStore contract. The engine never writes to
// the corpus; consumption is tracked by the reuse ledger, not here.
package corpus

import (
	"context"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
)

// Store is the in-memory fragment catalog. Queries return fragments in
// corpus load order, which keeps enumeration stable across runs.
type Store struct {
	fragments []core.Fragment
	byID      map[string]int
}

// NewStore builds a store from a fragment list. Duplicate fragment IDs are a
// corpus defect and rejected up front.
func NewStore(fragments []core.Fragment) (*Store, error) {
	s := &Store{
		fragments: append([]core.Fragment(nil), fragments...),
		byID:      make(map[string]int, len(fragments)),
	}
	for i, f := range s.fragments {
		if f.ID == "" {
			return nil, errors.New(errors.InvalidInput, "fragment with empty ID")
		}
		if _, dup := s.byID[f.ID]; dup {
			return nil, errors.WithFields(
				errors.New(errors.InvalidInput, "duplicate fragment ID"),
				errors.Fields{"fragment_id": f.ID},
			)
		}
		s.byID[f.ID] = i
	}
	return s, nil
}

// Len returns the number of cataloged fragments.
func (s *Store) Len() int {
	return len(s.fragments)
}

// Fragments returns a copy of the full catalog in load order.
func (s *Store) Fragments() []core.Fragment {
	return append([]core.Fragment(nil), s.fragments...)
}

// ByID returns a copy of the fragment with the given ID.
func (s *Store) ByID(id string) (*core.Fragment, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	f := s.fragments[i]
	return &f, true
}

// FetchCandidatesNear returns fragments matching the filters in load order.
// The state context carries no preference here: ranking is the scorer's job,
// the store only narrows and stays deterministic.
func (s *Store) FetchCandidatesNear(ctx context.Context, _ core.StateContext, filters core.QueryFilters) ([]core.Fragment, error) {
	if err := errors.CheckContext(ctx, "fetch candidates"); err != nil {
		return nil, err
	}

	var wanted map[string]bool
	if len(filters.Families) > 0 {
		wanted = make(map[string]bool, len(filters.Families))
		for _, family := range filters.Families {
			wanted[folder.String(family)] = true
		}
	}

	var out []core.Fragment
	for _, f := range s.fragments {
		if filters.MinWords > 0 && f.WordCount() < filters.MinWords {
			continue
		}
		if wanted != nil && !hasAnyFamily(f, wanted) {
			continue
		}
		out = append(out, f)
		if filters.Limit > 0 && len(out) == filters.Limit {
			break
		}
	}
	return out, nil
}

// FetchByExactRange returns the fragment covering exactly (lineID, r), or nil
// when no such fragment exists.
func (s *Store) FetchByExactRange(ctx context.Context, lineID string, r core.WordRange) (*core.Fragment, error) {
	if err := errors.CheckContext(ctx, "fetch by range"); err != nil {
		return nil, err
	}
	for _, f := range s.fragments {
		if f.LineID == lineID && f.Range == r {
			copied := f
			return &copied, nil
		}
	}
	return nil, nil
}

func hasAnyFamily(f core.Fragment, wanted map[string]bool) bool {
	for _, family := range f.Tags.Families {
		if wanted[folder.String(family)] {
			return true
		}
	}
	return false
}
