package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
)

func key(lineID string, start, end int) core.ReuseKey {
	return core.ReuseKey{LineID: lineID, Range: core.WordRange{Start: start, End: end}}
}

func TestReserveAndOverlap(t *testing.T) {
	tests := []struct {
		name     string
		first    core.ReuseKey
		second   core.ReuseKey
		conflict bool
	}{
		{"disjoint same line", key("l1", 0, 2), key("l1", 3, 6), false},
		{"identical range", key("l1", 0, 2), key("l1", 0, 2), true},
		{"inclusive bound touch", key("l1", 0, 3), key("l1", 3, 6), true},
		{"nested range", key("l1", 0, 8), key("l1", 2, 4), true},
		{"same range different line", key("l1", 0, 2), key("l2", 0, 2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			require.NoError(t, l.Reserve(tt.first))

			err := l.Reserve(tt.second)
			if tt.conflict {
				require.Error(t, err)
				assert.Equal(t, errors.ConstraintViolation, errors.Code(err))
				// Rejected reserve must not consume the range.
				assert.Equal(t, 1, l.ReservedCount())
			} else {
				require.NoError(t, err)
				assert.Equal(t, 2, l.ReservedCount())
			}
		})
	}
}

func TestIsAvailableReadOnly(t *testing.T) {
	l := New()
	require.NoError(t, l.Reserve(key("l1", 2, 5)))

	assert.False(t, l.IsAvailable(key("l1", 4, 7)))
	assert.True(t, l.IsAvailable(key("l1", 6, 9)))
	// Queries never mutate.
	assert.Equal(t, 1, l.ReservedCount())
}

func TestCloneIndependence(t *testing.T) {
	l := New()
	require.NoError(t, l.Reserve(key("l1", 0, 2)))

	fork := l.Clone()
	require.NoError(t, fork.Reserve(key("l1", 3, 6)))

	assert.True(t, l.IsAvailable(key("l1", 3, 6)), "original must not see fork reservations")
	assert.False(t, fork.IsAvailable(key("l1", 3, 6)))
}

func TestSnapshotRestore(t *testing.T) {
	l := New()
	require.NoError(t, l.Reserve(key("l1", 0, 2)))

	snap := l.Snapshot()

	require.NoError(t, l.Reserve(key("l1", 3, 6)))
	require.NoError(t, l.Reserve(key("l2", 0, 4)))
	assert.Equal(t, 3, l.ReservedCount())

	l.Restore(snap)
	assert.Equal(t, 1, l.ReservedCount())
	assert.True(t, l.IsAvailable(key("l1", 3, 6)))
	assert.False(t, l.IsAvailable(key("l1", 1, 1)))

	// Restoring twice from the same snapshot works; snapshots are immutable.
	require.NoError(t, l.Reserve(key("l3", 0, 3)))
	l.Restore(snap)
	assert.Equal(t, 1, l.ReservedCount())
}
