package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
	"github.com/centolabs/cento-go/pkg/ledger"
)

// Archive persists checkpoints to SQLite so a search can be inspected or
// resumed after the process exits. The in-memory Store remains the rollback
// authority during a run; the archive is a write-behind record.
type Archive struct {
	db *sql.DB
}

// ArchivedSnapshot is a checkpoint as read back from the archive. Ledgers are
// not stored: they are reconstructed from the committed fragments of each
// path's state.
type ArchivedSnapshot struct {
	Index    int
	Decision int
	TakenAt  time.Time
	Paths    []*core.AssemblyState
	Memory   map[string]float64
}

// NewArchive opens (or creates) a checkpoint archive at path.
func NewArchive(path string) (*Archive, error) {
	if path == "" {
		path = "cento_checkpoints.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to open checkpoint archive")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		document_id TEXT NOT NULL,
		idx         INTEGER NOT NULL,
		decision    INTEGER NOT NULL,
		taken_at    INTEGER NOT NULL,
		paths       BLOB NOT NULL,
		memory      BLOB NOT NULL,
		PRIMARY KEY (document_id, idx)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to initialize checkpoint archive schema")
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
	}

	return &Archive{db: db}, nil
}

// Save writes one checkpoint for a document. Saving the same index twice is
// rejected: the archive is append-only like the in-memory store.
func (a *Archive) Save(ctx context.Context, documentID string, snap Snapshot) error {
	states := make([]*core.AssemblyState, len(snap.Paths))
	for i, p := range snap.Paths {
		states[i] = p.State
	}
	paths, err := json.Marshal(states)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to encode checkpoint paths")
	}
	memory, err := json.Marshal(snap.Memory)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to encode checkpoint memory view")
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO checkpoints (document_id, idx, decision, taken_at, paths, memory)
		VALUES (?, ?, ?, ?, ?, ?)
	`, documentID, snap.Index, snap.Decision, snap.TakenAt.UnixNano(), paths, memory)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to archive checkpoint"),
			errors.Fields{"document_id": documentID, "index": snap.Index},
		)
	}
	return nil
}

// Load returns all archived checkpoints for a document in capture order.
func (a *Archive) Load(ctx context.Context, documentID string) ([]ArchivedSnapshot, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT idx, decision, taken_at, paths, memory
		FROM checkpoints WHERE document_id = ? ORDER BY idx ASC
	`, documentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to read checkpoint archive")
	}
	defer rows.Close()

	var out []ArchivedSnapshot
	for rows.Next() {
		var snap ArchivedSnapshot
		var takenAt int64
		var paths, memory []byte
		if err := rows.Scan(&snap.Index, &snap.Decision, &takenAt, &paths, &memory); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan archived checkpoint")
		}
		snap.TakenAt = time.Unix(0, takenAt)
		if err := json.Unmarshal(paths, &snap.Paths); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to decode checkpoint paths")
		}
		if err := json.Unmarshal(memory, &snap.Memory); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to decode checkpoint memory view")
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// RebuildLedger reconstructs a path's reuse ledger from the fragments already
// committed to its state, used when resuming from an archived checkpoint.
func RebuildLedger(state *core.AssemblyState) (*ledger.ReuseLedger, error) {
	led := ledger.New()
	for _, u := range state.Utterances {
		for _, f := range u.Fragments {
			if err := led.Reserve(f.ReuseKey()); err != nil {
				return nil, errors.Wrap(err, errors.ConstraintViolation,
					"archived state violates the no-reuse rule")
			}
		}
	}
	return led, nil
}
