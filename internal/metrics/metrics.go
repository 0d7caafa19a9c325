package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/wall-weaver/internal/storage"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
	}
}

// SetGallery records which gallery the run is crawling
func (t *Tracker) SetGallery(galleryURL string, totalPages int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.GalleryURL = galleryURL
	t.data.TotalPages = totalPages
}

// IncrementPagesFetched increments the successful page fetch counter
func (t *Tracker) IncrementPagesFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
}

// IncrementPagesFailed increments the failed page fetch counter
func (t *Tracker) IncrementPagesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
}

// AddImagesFound adds the number of descriptors extracted from a page
func (t *Tracker) AddImagesFound(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ImagesFound += n
}

// RecordImageDownloaded counts a published image and its size
func (t *Tracker) RecordImageDownloaded(bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ImagesDownloaded++
	t.data.BytesWritten += bytes
}

// IncrementImagesSkipped counts an image left alone because it already exists
func (t *Tracker) IncrementImagesSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ImagesSkipped++
}

// IncrementImagesFailed counts a failed image download
func (t *Tracker) IncrementImagesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ImagesFailed++
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	// Calculate average fetch time
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finalize metrics
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.data.TotalFetchTimeMs = t.totalFetchTimeMs

	if t.fetchCount > 0 {
		t.data.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Pages: %d/%d fetched, %d failed | Images: %d found, %d downloaded, %d skipped, %d failed | %d bytes",
		t.data.PagesFetched,
		t.data.TotalPages,
		t.data.PagesFailed,
		t.data.ImagesFound,
		t.data.ImagesDownloaded,
		t.data.ImagesSkipped,
		t.data.ImagesFailed,
		t.data.BytesWritten,
	)
}
