// Package state persists per-file content hashes between runs so unchanged
// documents can be skipped. The store is a small SQLite database; deleting it
// simply forces a full pass.
package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is the stored record for one file.
type Entry struct {
	Path        string
	ContentHash string
	ResultHash  string
	UpdatedAt   time.Time
	RunID       string
}

// RunRecord summarizes one completed run.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Files      int
	Changed    int
	Failed     int
	Skipped    int
}

// Store is a SQLite-backed hash store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the store at dbPath, creating parent directories as
// needed. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create state directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		result_hash TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		run_id TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		files INTEGER NOT NULL,
		changed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		skipped INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_run_id ON files(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Hash returns the hex-encoded SHA-256 of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashWith returns the hex-encoded SHA-256 of content salted with extra.
// Salting stored hashes with an options fingerprint makes them stop matching
// when the settings that produced the output change.
func HashWith(content []byte, extra string) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte(extra))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the stored entry for path, or nil when none exists.
func (s *Store) Lookup(ctx context.Context, path string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e Entry
	var updatedUnix int64
	err := s.db.QueryRowContext(ctx,
		"SELECT path, content_hash, result_hash, updated_at, run_id FROM files WHERE path = ?",
		path,
	).Scan(&e.Path, &e.ContentHash, &e.ResultHash, &updatedUnix, &e.RunID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query file state: %w", err)
	}
	e.UpdatedAt = time.Unix(updatedUnix, 0)
	return &e, nil
}

// Unchanged reports whether path's stored result hash matches hash, meaning
// the file on disk is exactly what the last run wrote.
func (s *Store) Unchanged(ctx context.Context, path, hash string) (bool, error) {
	entry, err := s.Lookup(ctx, path)
	if err != nil || entry == nil {
		return false, err
	}
	return entry.ResultHash == hash, nil
}

// Record stores the input and output hashes for path under runID.
func (s *Store) Record(ctx context.Context, path, contentHash, resultHash, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (path, content_hash, result_hash, updated_at, run_id)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		 content_hash = excluded.content_hash,
		 result_hash = excluded.result_hash,
		 updated_at = excluded.updated_at,
		 run_id = excluded.run_id`,
		path, contentHash, resultHash, time.Now().Unix(), runID,
	)
	if err != nil {
		return fmt.Errorf("record file state: %w", err)
	}
	return nil
}

// RecordRun stores the summary of a completed run.
func (s *Store) RecordRun(ctx context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, finished_at, files, changed, failed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.Files, run.Changed, run.Failed, run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns the most recent run summaries, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, started_at, finished_at, files, changed, failed, skipped FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished int64
		if err := rows.Scan(&r.RunID, &started, &finished, &r.Files, &r.Changed, &r.Failed, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		r.FinishedAt = time.Unix(finished, 0)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// Forget drops the entry for path, forcing reprocessing on the next run.
func (s *Store) Forget(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("forget file state: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
