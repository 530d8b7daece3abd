// Package memory implements the negative-memory penalty table: accumulated
// weights for previously failed choices, keyed by failure signature. Entries
// discourage but never forbid a choice.
package memory

import "sync"

// NegativeMemory is the penalty table contract. Penalties accumulate
// additively; there is no decay.
type NegativeMemory interface {
	// Penalty returns the accumulated penalty for a signature, zero when
	// the signature has never been recorded.
	Penalty(signature string) float64

	// Record adds magnitude to the signature's accumulated penalty.
	Record(signature string, magnitude float64)

	// Entries returns a copy of the full table for checkpointing and
	// artifact persistence.
	Entries() map[string]float64
}

// Table is the in-process implementation, safe for concurrent use. It lives
// for one document's generation unless explicitly shared.
type Table struct {
	mu      sync.RWMutex
	entries map[string]float64
}

// NewTable creates an empty penalty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]float64)}
}

// NewTableFrom seeds a table with existing entries, used when restoring a
// checkpoint's negative-memory view.
func NewTableFrom(entries map[string]float64) *Table {
	t := NewTable()
	for k, v := range entries {
		t.entries[k] = v
	}
	return t
}

func (t *Table) Penalty(signature string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[signature]
}

func (t *Table) Record(signature string, magnitude float64) {
	if magnitude <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[signature] += magnitude
}

func (t *Table) Entries() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of distinct signatures recorded.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
