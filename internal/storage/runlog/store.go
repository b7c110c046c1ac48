// Package runlog keeps a SQLite history of completed streaming sessions.
package runlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/proofstream/proofstream/internal/stream"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	ttfb_ms REAL,
	ttc_ms REAL NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	stall_count INTEGER NOT NULL,
	parse_errors INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	receipt_path TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Run is one recorded session.
type Run struct {
	ID               string   `db:"id"`
	CreatedAt        string   `db:"created_at"`
	Provider         string   `db:"provider"`
	Model            string   `db:"model"`
	TTFBMillis       *float64 `db:"ttfb_ms"`
	TTCMillis        float64  `db:"ttc_ms"`
	PromptTokens     int      `db:"prompt_tokens"`
	CompletionTokens int      `db:"completion_tokens"`
	StallCount       int      `db:"stall_count"`
	ParseErrors      int      `db:"parse_errors"`
	Error            string   `db:"error"`
	ReceiptPath      string   `db:"receipt_path"`
}

// NewRun captures a finished session as a run-log row.
func NewRun(id, provider, model string, sess *stream.Session) *Run {
	run := &Run{
		ID:               id,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
		Provider:         provider,
		Model:            model,
		TTCMillis:        float64(sess.TTC.Microseconds()) / 1000,
		PromptTokens:     sess.PromptTokens,
		CompletionTokens: sess.CompletionTokens,
		StallCount:       sess.StallCount,
		ParseErrors:      sess.ParseErrors,
		Error:            sess.Error,
		ReceiptPath:      sess.ReceiptPath,
	}
	if sess.TTFB != nil {
		ms := float64(sess.TTFB.Microseconds()) / 1000
		run.TTFBMillis = &ms
	}
	return run
}

// Store is the SQLite-backed run history.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the run log at path.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run log schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Insert appends one run to the history.
func (s *Store) Insert(ctx context.Context, run *Run) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, provider, model, ttfb_ms, ttc_ms,
			prompt_tokens, completion_tokens, stall_count, parse_errors,
			error, receipt_path
		) VALUES (
			:id, :created_at, :provider, :model, :ttfb_ms, :ttc_ms,
			:prompt_tokens, :completion_tokens, :stall_count, :parse_errors,
			:error, :receipt_path
		)`, run)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := s.db.SelectContext(ctx, &runs,
		`SELECT * FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	return runs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
