package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ipsniffer/store"
)

// Repository persists scan runs in SQLite.
type Repository struct {
	db *sql.DB
}

var _ store.Repository = (*Repository)(nil)

// New opens (or creates) the SQLite database at path and ensures the schema exists.
func New(path string) (*Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("error applying %q: %w", pragma, err)
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	ddl := []string{`
CREATE TABLE IF NOT EXISTS scan_runs (
	id TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	address TEXT NOT NULL,
	workers INTEGER NOT NULL,
	timeout_ns INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	processed INTEGER NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS scan_runs_target_finished ON scan_runs (target, finished_at);`,
		`
CREATE TABLE IF NOT EXISTS open_ports (
	run_id TEXT NOT NULL REFERENCES scan_runs (id) ON DELETE CASCADE,
	port INTEGER NOT NULL,
	PRIMARY KEY (run_id, port)
);`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating schema: %w", err)
		}
	}
	return nil
}

// SaveRun stores the run and its open ports in one transaction.
func (r *Repository) SaveRun(ctx context.Context, run *store.Run) error {
	if run == nil {
		return fmt.Errorf("run must not be nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO scan_runs (id, target, address, workers, timeout_ns, started_at, finished_at, processed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		run.ID.String(),
		run.Target,
		run.Address,
		run.Workers,
		int64(run.Timeout),
		run.StartedAt.UnixNano(),
		run.FinishedAt.UnixNano(),
		run.Processed,
	)
	if err != nil {
		return fmt.Errorf("error inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO open_ports (run_id, port) VALUES (?, ?);`)
	if err != nil {
		return fmt.Errorf("error preparing port insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range run.OpenPorts {
		if _, err := stmt.ExecContext(ctx, run.ID.String(), int(p)); err != nil {
			return fmt.Errorf("error inserting port %d: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing run: %w", err)
	}
	return nil
}

// Latest returns the most recently finished run for target, or store.ErrNotFound.
func (r *Repository) Latest(ctx context.Context, target string) (*store.Run, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, target, address, workers, timeout_ns, started_at, finished_at, processed
FROM scan_runs
WHERE target = ?
ORDER BY finished_at DESC
LIMIT 1;`, target)

	var (
		run               store.Run
		id                string
		timeout           int64
		started, finished int64
	)
	err := row.Scan(&id, &run.Target, &run.Address, &run.Workers, &timeout, &started, &finished, &run.Processed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading run: %w", err)
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("error parsing run id %q: %w", id, err)
	}
	run.Timeout = time.Duration(timeout)
	run.StartedAt = time.Unix(0, started).UTC()
	run.FinishedAt = time.Unix(0, finished).UTC()

	rows, err := r.db.QueryContext(ctx, `SELECT port FROM open_ports WHERE run_id = ? ORDER BY port;`, id)
	if err != nil {
		return nil, fmt.Errorf("error reading open ports: %w", err)
	}
	defer rows.Close()

	run.OpenPorts = []uint16{}
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("error scanning port: %w", err)
		}
		run.OpenPorts = append(run.OpenPorts, uint16(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open ports: %w", err)
	}
	return &run, nil
}

// Close releases the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}
