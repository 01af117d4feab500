package bench

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Run is one archived pipeline run: the raw results plus the derived
// analysis context handed to the renderer.
type Run struct {
	ID        int64             `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Host      string            `json:"host,omitempty"`
	Results   []Result          `json:"results"`
	Context   map[string]string `json:"context"`
}

// Store defines the interface for archiving pipeline runs.
type Store interface {
	Save(run Run) (int64, error)
	LoadAll() ([]Run, error)
	LoadLatest() (*Run, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and applies migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		host TEXT,
		results TEXT NOT NULL,
		context TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save archives a run and returns its row id.
func (s *SQLiteStore) Save(run Run) (int64, error) {
	results, err := json.Marshal(run.Results)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal results: %w", err)
	}
	contextJSON, err := json.Marshal(run.Context)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal context: %w", err)
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.Exec(
		"INSERT INTO runs (created_at, host, results, context) VALUES (?, ?, ?, ?)",
		createdAt.UTC().Format(time.RFC3339Nano), run.Host, string(results), string(contextJSON),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LoadAll returns every archived run ordered oldest first.
func (s *SQLiteStore) LoadAll() ([]Run, error) {
	rows, err := s.db.Query(
		"SELECT id, created_at, host, results, context FROM runs ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			createdAt   string
			resultsJSON string
			contextJSON string
		)
		if err := rows.Scan(&run.ID, &createdAt, &run.Host, &resultsJSON, &contextJSON); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			run.CreatedAt = t
		}
		if err := json.Unmarshal([]byte(resultsJSON), &run.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results for run %d: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(contextJSON), &run.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context for run %d: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadLatest returns the most recent archived run, or nil when the store
// is empty.
func (s *SQLiteStore) LoadLatest() (*Run, error) {
	runs, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[len(runs)-1], nil
}
