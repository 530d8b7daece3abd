package memory

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/centolabs/cento-go/pkg/errors"
	"github.com/centolabs/cento-go/pkg/logging"
)

// SharedStore is a SQLite-backed penalty table that multiple generation runs
// can share. Failed choices recorded by one run penalize the same choice in
// later runs over the same corpus.
type SharedStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSharedStore opens (or creates) the shared penalty database at path.
func NewSharedStore(path string) (*SharedStore, error) {
	if path == "" {
		path = "cento_memory.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to open negative-memory database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SharedStore{db: db, logger: logging.GetLogger()}

	if err := store.initDB(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to initialize negative-memory schema")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
	}

	pragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			store.logger.Warn(context.Background(), "failed to set pragma %s: %v", pragma, err)
		}
	}

	return store, nil
}

func (s *SharedStore) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS negative_memory (
		signature  TEXT PRIMARY KEY,
		penalty    REAL NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_updated_at ON negative_memory(updated_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// Penalty reads the accumulated penalty for a signature. Read failures are
// logged and treated as zero so a degraded store never blocks generation.
func (s *SharedStore) Penalty(signature string) float64 {
	var penalty float64
	err := s.db.QueryRow(
		`SELECT penalty FROM negative_memory WHERE signature = ?`, signature,
	).Scan(&penalty)
	if err == sql.ErrNoRows {
		return 0
	}
	if err != nil {
		s.logger.Warn(context.Background(), "negative-memory read failed: %v", err)
		return 0
	}
	return penalty
}

// Record adds magnitude to the signature's penalty. Write failures are logged
// rather than surfaced; losing one penalty entry only weakens steering.
func (s *SharedStore) Record(signature string, magnitude float64) {
	if magnitude <= 0 {
		return
	}
	_, err := s.db.Exec(`
		INSERT INTO negative_memory (signature, penalty, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(signature) DO UPDATE SET
			penalty = penalty + excluded.penalty,
			updated_at = excluded.updated_at
	`, signature, magnitude, time.Now().UnixNano())
	if err != nil {
		s.logger.Warn(context.Background(), "negative-memory write failed: %v", err)
	}
}

// Entries returns the full table.
func (s *SharedStore) Entries() map[string]float64 {
	rows, err := s.db.Query(`SELECT signature, penalty FROM negative_memory`)
	if err != nil {
		s.logger.Warn(context.Background(), "negative-memory scan failed: %v", err)
		return map[string]float64{}
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var sig string
		var penalty float64
		if err := rows.Scan(&sig, &penalty); err != nil {
			s.logger.Warn(context.Background(), "negative-memory row scan failed: %v", err)
			continue
		}
		out[sig] = penalty
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn(context.Background(), "negative-memory iteration failed: %v", err)
	}
	return out
}

// Merge folds a run's in-process table into the shared store in one
// transaction, typically at document completion.
func (s *SharedStore) Merge(ctx context.Context, entries map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to begin merge transaction")
	}

	var committed bool
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Warn(ctx, "failed to rollback merge: %v", rollbackErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO negative_memory (signature, penalty, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(signature) DO UPDATE SET
			penalty = penalty + excluded.penalty,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to prepare merge statement")
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for sig, penalty := range entries {
		if penalty <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, sig, penalty, now); err != nil {
			return errors.Wrap(err, errors.Unknown, "failed to merge penalty entry")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to commit merge")
	}
	committed = true
	return nil
}

// Close releases the underlying database handle.
func (s *SharedStore) Close() error {
	return s.db.Close()
}
