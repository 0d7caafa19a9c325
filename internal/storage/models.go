package storage

import "time"

// Status values stored in the ledger
const (
	StatusRunning     = "running"
	StatusDone        = "done"
	StatusInterrupted = "interrupted"
	StatusFetched     = "fetched"
	StatusFailed      = "failed"
	StatusDownloaded  = "downloaded"
	StatusSkipped     = "skipped"
)

// Run is one invocation of the crawler against a gallery
type Run struct {
	RunID      int64
	GalleryURL string
	Title      string
	TotalPages int
	OutputDir  string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// PageRecord is the outcome of fetching one listing page
type PageRecord struct {
	RunID      int64
	PageNumber int
	Status     string
	Error      string
}

// ItemRecord is the outcome of downloading one image
type ItemRecord struct {
	RunID      int64
	PageNumber int
	ImageID    string
	Server     string
	FileType   string
	Path       string
	Status     string
	Bytes      int64
	Error      string
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	GalleryURL        string    `json:"gallery_url"`
	TotalPages        int       `json:"total_pages"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	ImagesFound       int       `json:"images_found"`
	ImagesDownloaded  int       `json:"images_downloaded"`
	ImagesSkipped     int       `json:"images_skipped"`
	ImagesFailed      int       `json:"images_failed"`
	BytesWritten      int64     `json:"bytes_written"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
