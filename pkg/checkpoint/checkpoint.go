// Package checkpoint provides the append-only store of assembly snapshots
// used for rollback. Snapshots are immutable once captured: restoring one
// hands back fresh copies, so the same checkpoint can seed any number of
// rollbacks.
package checkpoint

import (
	"sync"
	"time"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
	"github.com/centolabs/cento-go/pkg/ledger"
)

// PathSnapshot pairs one beam path's state with its reuse-ledger contents at
// capture time.
type PathSnapshot struct {
	State  *core.AssemblyState
	Ledger ledger.Snapshot
}

// Snapshot is one immutable checkpoint: the full beam frontier, each path's
// ledger, and the negative-memory view, indexed by decision count.
type Snapshot struct {
	Index    int
	Decision int
	TakenAt  time.Time
	Paths    []PathSnapshot
	Memory   map[string]float64
}

// Fork returns independent deep copies of the snapshot's paths, safe for the
// caller to mutate. The snapshot itself is never handed out directly.
func (s Snapshot) Fork() []PathSnapshot {
	forked := make([]PathSnapshot, len(s.Paths))
	for i, p := range s.Paths {
		forked[i] = PathSnapshot{State: p.State.Clone(), Ledger: p.Ledger}
	}
	return forked
}

// Store is the append-only checkpoint sequence for one document. Checkpoints
// are never modified or removed after capture; rollback reads, it does not
// rewrite.
type Store struct {
	mu        sync.RWMutex
	snapshots []Snapshot
}

// NewStore creates an empty checkpoint store.
func NewStore() *Store {
	return &Store{}
}

// Capture appends a checkpoint built from deep copies of the given paths and
// memory view, and returns its index.
func (s *Store) Capture(decision int, paths []PathSnapshot, memory map[string]float64) int {
	copied := make([]PathSnapshot, len(paths))
	for i, p := range paths {
		copied[i] = PathSnapshot{State: p.State.Clone(), Ledger: p.Ledger}
	}
	view := make(map[string]float64, len(memory))
	for k, v := range memory {
		view[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Index:    len(s.snapshots),
		Decision: decision,
		TakenAt:  time.Now(),
		Paths:    copied,
		Memory:   view,
	}
	s.snapshots = append(s.snapshots, snap)
	return snap.Index
}

// Latest returns the most recent checkpoint.
func (s *Store) Latest() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snapshots) == 0 {
		return Snapshot{}, errors.New(errors.ResourceNotFound, "no checkpoints captured")
	}
	return s.snapshots[len(s.snapshots)-1], nil
}

// At returns the checkpoint with the given index. A negative index selects
// the most recent checkpoint.
func (s *Store) At(index int) (Snapshot, error) {
	if index < 0 {
		return s.Latest()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index >= len(s.snapshots) {
		return Snapshot{}, errors.WithFields(
			errors.New(errors.ResourceNotFound, "checkpoint index out of range"),
			errors.Fields{"index": index, "count": len(s.snapshots)},
		)
	}
	return s.snapshots[index], nil
}

// Len returns the number of captured checkpoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
