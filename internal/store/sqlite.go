package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobwatch/internal/model"
)

// Ensure SQLiteStore implements model.ResultStore.
var _ model.ResultStore = (*SQLiteStore)(nil)

// SQLiteStore keeps retained results in a SQLite database.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// results table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS results (
		job_id             TEXT PRIMARY KEY,
		link               TEXT NOT NULL DEFAULT '',
		title              TEXT NOT NULL DEFAULT '',
		company            TEXT NOT NULL DEFAULT '',
		location           TEXT NOT NULL DEFAULT '',
		description        TEXT NOT NULL DEFAULT '',
		raw_output         TEXT NOT NULL DEFAULT '',
		first_line         TEXT NOT NULL DEFAULT '',
		parsed             TEXT,
		should_save        INTEGER NOT NULL DEFAULT 0,
		analyzed_at        TEXT NOT NULL,
		applied            INTEGER NOT NULL DEFAULT 0,
		source             TEXT NOT NULL DEFAULT '',
		application_result TEXT NOT NULL DEFAULT 'no_response'
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating results table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Insert stores result unless its job id already exists.
func (s *SQLiteStore) Insert(r model.AnalysisResult) (model.InsertOutcome, error) {
	var parsed any
	if r.Analysis.Parsed != nil {
		b, err := json.Marshal(r.Analysis.Parsed)
		if err != nil {
			return model.Inserted, fmt.Errorf("encoding parsed analysis for %s: %w", r.JobID, err)
		}
		parsed = string(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`INSERT OR IGNORE INTO results
		(job_id, link, title, company, location, description, raw_output, first_line,
		 parsed, should_save, analyzed_at, applied, source, application_result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobID, r.Link, r.Title, r.Company, r.Location, r.DescriptionSnippet,
		r.Analysis.RawOutput, r.Analysis.FirstLine, parsed, r.ShouldSave,
		r.AnalyzedAt.UTC().Format(time.RFC3339Nano), r.Applied, r.Source, r.ApplicationResult,
	)
	if err != nil {
		return model.Inserted, fmt.Errorf("inserting %s: %w", r.JobID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Inserted, fmt.Errorf("inserting %s: %w", r.JobID, err)
	}
	if n == 0 {
		return model.AlreadyPresent, nil
	}
	return model.Inserted, nil
}

const selectColumns = `SELECT job_id, link, title, company, location, description, raw_output,
	first_line, parsed, should_save, analyzed_at, applied, source, application_result FROM results`

// Get returns the result stored under jobID.
func (s *SQLiteStore) Get(jobID string) (model.AnalysisResult, bool, error) {
	rows, err := s.db.Query(selectColumns+" WHERE job_id = ?", jobID)
	if err != nil {
		return model.AnalysisResult{}, false, fmt.Errorf("loading %s: %w", jobID, err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return model.AnalysisResult{}, false, fmt.Errorf("loading %s: %w", jobID, err)
	}
	if len(results) == 0 {
		return model.AnalysisResult{}, false, nil
	}
	return results[0], true, nil
}

// List returns all results, most recently analyzed first.
func (s *SQLiteStore) List() ([]model.AnalysisResult, error) {
	rows, err := s.db.Query(selectColumns + " ORDER BY analyzed_at DESC, job_id")
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	return results, nil
}

// SetApplied updates the applied flag of an existing result.
func (s *SQLiteStore) SetApplied(jobID string, applied bool) error {
	return s.exec(jobID, "UPDATE results SET applied = ? WHERE job_id = ?", applied, jobID)
}

// SetApplicationResult updates the application outcome of an existing result.
func (s *SQLiteStore) SetApplicationResult(jobID string, result string) error {
	return s.exec(jobID, "UPDATE results SET application_result = ? WHERE job_id = ?", result, jobID)
}

func (s *SQLiteStore) exec(jobID, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", jobID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s: %w", jobID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating %s: %w", jobID, model.ErrNotFound)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanResults(rows *sql.Rows) ([]model.AnalysisResult, error) {
	defer rows.Close()

	var out []model.AnalysisResult
	for rows.Next() {
		var (
			r          model.AnalysisResult
			parsed     sql.NullString
			analyzedAt string
		)
		if err := rows.Scan(&r.JobID, &r.Link, &r.Title, &r.Company, &r.Location,
			&r.DescriptionSnippet, &r.Analysis.RawOutput, &r.Analysis.FirstLine, &parsed,
			&r.ShouldSave, &analyzedAt, &r.Applied, &r.Source, &r.ApplicationResult); err != nil {
			return nil, err
		}
		if parsed.Valid && parsed.String != "" {
			if err := json.Unmarshal([]byte(parsed.String), &r.Analysis.Parsed); err != nil {
				return nil, fmt.Errorf("decoding parsed analysis for %s: %w", r.JobID, err)
			}
		}
		t, err := time.Parse(time.RFC3339Nano, analyzedAt)
		if err != nil {
			return nil, fmt.Errorf("decoding analyzed_at for %s: %w", r.JobID, err)
		}
		r.AnalyzedAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}
