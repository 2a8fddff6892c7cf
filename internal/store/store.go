// Package store persists translation run history to SQLite for the audit
// command. Every document run records one row per page, so failed pages can
// be inspected after the process exits.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input_file TEXT NOT NULL,
		output_file TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		service TEXT NOT NULL,
		status TEXT DEFAULT 'running',
		pages_total INTEGER DEFAULT 0,
		pages_succeeded INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS page_results (
		run_id TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, page_number),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_page_results_run ON page_results(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Run is a row from the runs table.
type Run struct {
	ID             string
	InputFile      string
	OutputFile     string
	SourceLang     string
	TargetLang     string
	Service        string
	Status         string
	PagesTotal     int
	PagesSucceeded int
	PagesFailed    int
	CreatedAt      time.Time
}

// PageResult is a row from the page_results table.
type PageResult struct {
	RunID      string
	PageNumber int
	Status     string
	Attempts   int
	DurationMs int
	Error      string
	CreatedAt  time.Time
}

// CreateRun inserts a new run in the 'running' state and returns its ID.
func (s *Store) CreateRun(ctx context.Context, inputFile, outputFile, sourceLang, targetLang, service string, pagesTotal int) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_file, output_file, source_lang, target_lang, service, pages_total) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, inputFile, outputFile, sourceLang, targetLang, service, pagesTotal)
	return id, err
}

// FinishRun records the final status and per-page counts of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string, succeeded, failed int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, pages_succeeded = ?, pages_failed = ?, finished_at = ? WHERE id = ?`,
		status, succeeded, failed, time.Now(), runID)
	return err
}

// SavePageResult records the outcome of one page.
func (s *Store) SavePageResult(ctx context.Context, runID string, pageNumber int, status string, attempts int, duration time.Duration, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO page_results (run_id, page_number, status, attempts, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, pageNumber, status, attempts, duration.Milliseconds(), errMsg)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_file, output_file, source_lang, target_lang, service, status, pages_total, pages_succeeded, pages_failed, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.InputFile, &r.OutputFile, &r.SourceLang, &r.TargetLang, &r.Service, &r.Status, &r.PagesTotal, &r.PagesSucceeded, &r.PagesFailed, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListPageResults returns all page results of a run ordered by page number.
func (s *Store) ListPageResults(ctx context.Context, runID string) ([]PageResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, page_number, status, attempts, duration_ms, error, created_at
		 FROM page_results WHERE run_id = ? ORDER BY page_number`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []PageResult
	for rows.Next() {
		var p PageResult
		var errMsg sql.NullString
		if err := rows.Scan(&p.RunID, &p.PageNumber, &p.Status, &p.Attempts, &p.DurationMs, &errMsg, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Error = errMsg.String
		results = append(results, p)
	}
	return results, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
