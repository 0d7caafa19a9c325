package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage records crawl history in a sqlite database
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Page and download workers share one connection so writes never contend
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id INTEGER PRIMARY KEY AUTOINCREMENT,
		gallery_url TEXT NOT NULL,
		title TEXT NOT NULL,
		total_pages INTEGER NOT NULL,
		output_dir TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pages (
		run_id INTEGER NOT NULL,
		page_number INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(run_id),
		UNIQUE(run_id, page_number)
	);

	CREATE TABLE IF NOT EXISTS items (
		item_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		page_number INTEGER NOT NULL,
		image_id TEXT NOT NULL,
		server TEXT NOT NULL,
		file_type TEXT NOT NULL,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		bytes INTEGER DEFAULT 0,
		error TEXT,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_gallery ON runs(gallery_url);
	CREATE INDEX IF NOT EXISTS idx_items_run ON items(run_id);
	CREATE INDEX IF NOT EXISTS idx_items_image ON items(image_id, file_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StartRun inserts a new run in the running state and returns its id
func (s *Storage) StartRun(galleryURL, title string, totalPages int, outputDir string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO runs (gallery_url, title, total_pages, output_dir, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, galleryURL, title, totalPages, outputDir, StatusRunning, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve run_id: %w", err)
	}
	return runID, nil
}

// FinishRun stamps the run with its final status
func (s *Storage) FinishRun(runID int64, status string) error {
	_, err := s.db.Exec("UPDATE runs SET status = ?, finished_at = ? WHERE run_id = ?", status, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run recorded for galleryURL, or nil if the
// gallery was never crawled
func (s *Storage) LastRun(galleryURL string) (*Run, error) {
	var run Run
	var finished sql.NullTime
	err := s.db.QueryRow(`
		SELECT run_id, gallery_url, title, total_pages, output_dir, status, started_at, finished_at
		FROM runs
		WHERE gallery_url = ?
		ORDER BY run_id DESC
		LIMIT 1
	`, galleryURL).Scan(&run.RunID, &run.GalleryURL, &run.Title, &run.TotalPages, &run.OutputDir, &run.Status, &run.StartedAt, &finished)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}

	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// RecordPage stores the outcome of a page fetch, replacing an earlier record
// for the same page of the same run
func (s *Storage) RecordPage(rec PageRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO pages (run_id, page_number, status, error)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, page_number) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error
	`, rec.RunID, rec.PageNumber, rec.Status, rec.Error)
	if err != nil {
		return fmt.Errorf("failed to record page: %w", err)
	}
	return nil
}

// RecordItem appends the outcome of one image download
func (s *Storage) RecordItem(rec ItemRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO items (run_id, page_number, image_id, server, file_type, path, status, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.PageNumber, rec.ImageID, rec.Server, rec.FileType, rec.Path, rec.Status, rec.Bytes, rec.Error)
	if err != nil {
		return fmt.Errorf("failed to record item: %w", err)
	}
	return nil
}

// CountItems returns the number of item records per status for a run
func (s *Storage) CountItems(runID int64) (map[string]int, error) {
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM items WHERE run_id = ? GROUP BY status", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan item count: %w", err)
		}
		counts[status] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item counts: %w", err)
	}
	return counts, nil
}

// ListPages returns the page records of a run ordered by page number
func (s *Storage) ListPages(runID int64) ([]PageRecord, error) {
	rows, err := s.db.Query(`
		SELECT run_id, page_number, status, COALESCE(error, '')
		FROM pages
		WHERE run_id = ?
		ORDER BY page_number ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var rec PageRecord
		if err := rows.Scan(&rec.RunID, &rec.PageNumber, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}
	return pages, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
