// Package ledger tracks consumed fragment ranges and enforces the global
// no-reuse rule: no two reserved ranges may overlap on the same owning line
// for the lifetime of a document.
package ledger

import (
	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
)

// ReuseLedger owns "what has been spent" for one search path. It is mutated
// only on commit of a decision; enumeration and scoring query it read-only.
// Each beam path holds its own copy, forked via Clone, never shared.
type ReuseLedger struct {
	reserved map[string][]core.WordRange // line ID -> reserved ranges, append order
}

// New creates an empty ledger.
func New() *ReuseLedger {
	return &ReuseLedger{reserved: make(map[string][]core.WordRange)}
}

// IsAvailable reports whether the range is free on its owning line.
func (l *ReuseLedger) IsAvailable(key core.ReuseKey) bool {
	for _, r := range l.reserved[key.LineID] {
		if r.Overlaps(key.Range) {
			return false
		}
	}
	return true
}

// Reserve atomically claims the candidate's range. It returns a
// ConstraintViolation error when the range overlaps an earlier reservation;
// a rejected reserve leaves the ledger untouched.
func (l *ReuseLedger) Reserve(key core.ReuseKey) error {
	if !l.IsAvailable(key) {
		return errors.WithFields(
			errors.New(errors.ConstraintViolation, "fragment range already reserved"),
			errors.Fields{"line_id": key.LineID, "start": key.Range.Start, "end": key.Range.End},
		)
	}
	l.reserved[key.LineID] = append(l.reserved[key.LineID], key.Range)
	return nil
}

// Clone produces an independent copy for a forked beam path.
func (l *ReuseLedger) Clone() *ReuseLedger {
	clone := &ReuseLedger{reserved: make(map[string][]core.WordRange, len(l.reserved))}
	for lineID, ranges := range l.reserved {
		clone.reserved[lineID] = append([]core.WordRange(nil), ranges...)
	}
	return clone
}

// Snapshot is an immutable copy of ledger contents taken at a checkpoint.
type Snapshot struct {
	reserved map[string][]core.WordRange
}

// Snapshot captures the current reservations.
func (l *ReuseLedger) Snapshot() Snapshot {
	return Snapshot{reserved: l.Clone().reserved}
}

// Restore replaces the ledger contents with a snapshot's, leaving the
// snapshot itself untouched for later restores.
func (l *ReuseLedger) Restore(s Snapshot) {
	restored := make(map[string][]core.WordRange, len(s.reserved))
	for lineID, ranges := range s.reserved {
		restored[lineID] = append([]core.WordRange(nil), ranges...)
	}
	l.reserved = restored
}

// ReservedCount returns the total number of reserved ranges, used for
// diagnostics and tests.
func (l *ReuseLedger) ReservedCount() int {
	n := 0
	for _, ranges := range l.reserved {
		n += len(ranges)
	}
	return n
}
