package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dtnitsch/wiki-harvester/models"
)

// Page outcome statuses
const (
	StatusWritten = "written"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Run statuses
const (
	RunRunning        = "running"
	RunCompleted      = "completed"
	RunPartialFailure = "partial_failure"
	RunAborted        = "aborted"
)

// Run represents one crawl invocation
type Run struct {
	RunID        int64      `json:"run_id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	APIURL       string     `json:"api_url"`
	Source       string     `json:"source"`
	OutputDir    string     `json:"output_dir"`
	Status       string     `json:"status"`
	Counts       RunCounts  `json:"counts"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// RunCounts are the end-of-run totals
type RunCounts struct {
	Discovered int `yaml:"discovered" json:"discovered"`
	Written    int `yaml:"written" json:"written"`
	Skipped    int `yaml:"skipped" json:"skipped"`
	Failed     int `yaml:"failed" json:"failed"`
}

// PageResult is the outcome of one page within a run
type PageResult struct {
	RunID         int64         `json:"run_id"`
	PageID        int64         `json:"page_id"`
	Title         string        `json:"title"`
	Batch         int           `json:"batch"`
	Status        string        `json:"status"`
	Reason        string        `json:"reason,omitempty"`
	ErrorType     string        `json:"error_type,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	InfoboxCount  int           `json:"infobox_count"`
	Template      string        `json:"template,omitempty"`
	FilePath      string        `json:"file_path,omitempty"`
	ContentHash   string        `json:"content_hash,omitempty"`
	FileSizeBytes int64         `json:"file_size_bytes,omitempty"`
	Language      string        `json:"language,omitempty"`
	SectionCount  int           `json:"section_count"`
	CategoryCount int           `json:"category_count"`
	Duration      time.Duration `json:"duration_ns"`
}

// CreateRun inserts a run in the running state and returns its ID
func (db *DB) CreateRun(apiURL, source, outputDir string) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (api_url, source, output_dir, status)
		VALUES (?, ?, ?, ?)
	`, apiURL, source, outputDir, RunRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// FinishRun stores the final status and counts of a run
func (db *DB) FinishRun(runID int64, status string, counts RunCounts, errorMessage string) error {
	_, err := db.Exec(`
		UPDATE runs
		SET finished_at = CURRENT_TIMESTAMP, status = ?, discovered = ?, written = ?,
		    skipped = ?, failed = ?, error_message = ?
		WHERE run_id = ?
	`, status, counts.Discovered, counts.Written, counts.Skipped, counts.Failed,
		NewNullString(errorMessage), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordPageResult upserts the page and stores its outcome for the run.
// Recording the same page twice in one run keeps the latest outcome.
func (db *DB) RecordPageResult(r PageResult) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO pages (page_id, title) VALUES (?, ?)
		ON CONFLICT(page_id) DO UPDATE SET title = excluded.title, last_seen_at = CURRENT_TIMESTAMP
	`, r.PageID, r.Title)
	if err != nil {
		return fmt.Errorf("failed to upsert page %d: %w", r.PageID, err)
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO page_results (run_id, page_id, batch, status, reason, error_type,
		    error_message, infobox_count, template, file_path, content_hash, file_size_bytes,
		    language, section_count, category_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.PageID, r.Batch, r.Status, NewNullString(r.Reason), NewNullString(r.ErrorType),
		NewNullString(r.ErrorMessage), r.InfoboxCount, NewNullString(r.Template), NewNullString(r.FilePath),
		NewNullString(r.ContentHash), r.FileSizeBytes, NewNullString(r.Language), r.SectionCount,
		r.CategoryCount, r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to insert page result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page result: %w", err)
	}
	return nil
}

const runColumns = `run_id, started_at, finished_at, api_url, source, output_dir, status,
	discovered, written, skipped, failed, error_message`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var finished sql.NullTime
	var errorMessage sql.NullString
	err := s.Scan(&r.RunID, &r.StartedAt, &finished, &r.APIURL, &r.Source, &r.OutputDir, &r.Status,
		&r.Counts.Discovered, &r.Counts.Written, &r.Counts.Skipped, &r.Counts.Failed, &errorMessage)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	if errorMessage.Valid {
		r.ErrorMessage = errorMessage.String
	}
	return &r, nil
}

// GetRun retrieves a run by its ID
func (db *DB) GetRun(runID int64) (*Run, error) {
	run, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs ordered by most recent first
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY run_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRunResults retrieves all page results of a run in recording order
func (db *DB) GetRunResults(runID int64) ([]PageResult, error) {
	rows, err := db.Query(`
		SELECT pr.run_id, pr.page_id, p.title, pr.batch, pr.status, pr.reason, pr.error_type,
		       pr.error_message, pr.infobox_count, pr.template, pr.file_path, pr.content_hash,
		       pr.file_size_bytes, pr.language, pr.section_count, pr.category_count, pr.duration_ms
		FROM page_results pr
		JOIN pages p ON pr.page_id = p.page_id
		WHERE pr.run_id = ?
		ORDER BY pr.result_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run results: %w", err)
	}
	defer rows.Close()

	var results []PageResult
	for rows.Next() {
		var r PageResult
		var reason, errorType, errorMessage, template, filePath, contentHash, language sql.NullString
		var durationMS int64
		if err := rows.Scan(&r.RunID, &r.PageID, &r.Title, &r.Batch, &r.Status, &reason, &errorType,
			&errorMessage, &r.InfoboxCount, &template, &filePath, &contentHash,
			&r.FileSizeBytes, &language, &r.SectionCount, &r.CategoryCount, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Reason = reason.String
		r.ErrorType = errorType.String
		r.ErrorMessage = errorMessage.String
		r.Template = template.String
		r.FilePath = filePath.String
		r.ContentHash = contentHash.String
		r.Language = language.String
		r.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

// FailedPages returns the pages whose outcome in runID was failed
func (db *DB) FailedPages(runID int64) ([]models.PageStub, error) {
	if _, err := db.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT p.page_id, p.title
		FROM page_results pr
		JOIN pages p ON pr.page_id = p.page_id
		WHERE pr.run_id = ? AND pr.status = ?
		ORDER BY pr.result_id
	`, runID, StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed pages: %w", err)
	}
	defer rows.Close()

	var stubs []models.PageStub
	for rows.Next() {
		var s models.PageStub
		if err := rows.Scan(&s.PageID, &s.Title); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		stubs = append(stubs, s)
	}
	return stubs, rows.Err()
}
