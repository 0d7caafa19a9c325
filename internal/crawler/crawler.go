package crawler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/wall-weaver/internal/config"
	"github.com/alvmarrod/wall-weaver/internal/download"
	"github.com/alvmarrod/wall-weaver/internal/gallery"
	"github.com/alvmarrod/wall-weaver/internal/metrics"
	"github.com/alvmarrod/wall-weaver/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PageFetcher retrieves and parses one listing page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// ImageDownloader stores one image inside dir
type ImageDownloader interface {
	Download(ctx context.Context, item gallery.ImageDescriptor, dir string) (*download.Result, error)
}

// Recorder persists crawl history
type Recorder interface {
	LastRun(galleryURL string) (*storage.Run, error)
	CountItems(runID int64) (map[string]int, error)
	ListPages(runID int64) ([]storage.PageRecord, error)
	StartRun(galleryURL, title string, totalPages int, outputDir string) (int64, error)
	FinishRun(runID int64, status string) error
	RecordPage(rec storage.PageRecord) error
	RecordItem(rec storage.ItemRecord) error
}

// Summary describes a finished run
type Summary struct {
	Gallery   gallery.Reference
	OutputDir string
	Metrics   storage.Metrics
}

// Crawler orchestrates the gallery download process. A Crawler runs one
// gallery at a time.
type Crawler struct {
	cfg        *config.Config
	fetcher    PageFetcher
	adapter    gallery.Adapter
	downloader ImageDownloader
	tracker    *metrics.Tracker
	recorder   Recorder
	log        *logrus.Logger
	runID      int64
}

// NewCrawler creates a new crawler instance. tracker, recorder and log may be nil.
func NewCrawler(
	cfg *config.Config,
	fetcher PageFetcher,
	adapter gallery.Adapter,
	downloader ImageDownloader,
	tracker *metrics.Tracker,
	recorder Recorder,
	log *logrus.Logger,
) *Crawler {
	if tracker == nil {
		tracker = metrics.NewTracker()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Crawler{
		cfg:        cfg,
		fetcher:    fetcher,
		adapter:    adapter,
		downloader: downloader,
		tracker:    tracker,
		recorder:   recorder,
		log:        log,
	}
}

// Run crawls every page of the gallery at rawURL. Page and image failures are
// logged and skipped; only a *FatalError is returned.
func (c *Crawler) Run(ctx context.Context, rawURL string) (*Summary, error) {
	baseURL := gallery.Normalize(rawURL)
	c.log.Debugf("Normalized gallery URL: %s", baseURL)

	start := time.Now()
	doc, err := c.fetcher.Fetch(ctx, baseURL)
	c.tracker.RecordFetchTime(time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return nil, &FatalError{Stage: StageInterrupted, Err: ctx.Err()}
		}
		return nil, &FatalError{Stage: StageFirstPage, Err: err}
	}

	ref, err := gallery.NewReference(baseURL, doc, c.adapter)
	if err != nil {
		return nil, &FatalError{Stage: StageMetadata, Err: err}
	}

	outputDir := filepath.Join(c.cfg.OutputDir, ref.Title)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, &FatalError{Stage: StageOutputDir, Err: err}
	}

	c.tracker.SetGallery(baseURL, ref.TotalPages)
	c.reportPreviousRun(ref)
	c.startRun(ref, outputDir)
	c.log.Infof("Gallery %q (%s): %d pages, saving to %s", ref.Title, c.adapter.Name(), ref.TotalPages, outputDir)

	// Every page goes through the loop, page 1 included
	queue := NewQueue()
	for page := 1; page <= ref.TotalPages; page++ {
		queue.Push(PageJob{Number: page})
	}
	queue.Stop()

	workers := c.cfg.ConcurrentPages
	if workers > ref.TotalPages {
		workers = ref.TotalPages
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.worker(ctx, id, ref, outputDir, queue)
		}(i + 1)
	}
	wg.Wait()

	status := storage.StatusDone
	if ctx.Err() != nil {
		status = storage.StatusInterrupted
	}
	c.finishRun(status)

	summary := &Summary{
		Gallery:   ref,
		OutputDir: outputDir,
		Metrics:   c.tracker.GetSnapshot(),
	}

	if err := ctx.Err(); err != nil {
		return summary, &FatalError{Stage: StageInterrupted, Err: err}
	}

	c.log.Infof("Finished gallery %q: %s", ref.Title, c.tracker.LogProgress())
	return summary, nil
}

// worker processes page jobs until the queue drains or ctx is cancelled
func (c *Crawler) worker(ctx context.Context, id int, ref gallery.Reference, outputDir string, queue *Queue) {
	c.log.Debugf("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			c.log.Debugf("Worker %d received stop signal", id)
			return
		default:
		}

		job, ok := queue.Pop()
		if !ok {
			c.log.Debugf("Worker %d: queue drained, exiting", id)
			return
		}

		c.processPage(ctx, ref, outputDir, job.Number)
	}
}

// processPage fetches one listing page and downloads its images
func (c *Crawler) processPage(ctx context.Context, ref gallery.Reference, outputDir string, page int) {
	pageURL := ref.PageURL(page)

	start := time.Now()
	doc, err := c.fetcher.Fetch(ctx, pageURL)
	c.tracker.RecordFetchTime(time.Since(start))
	if err != nil && ctx.Err() != nil {
		c.log.WithField("page", page).Debugf("Page %d abandoned: %v", page, err)
		return
	}
	if err != nil {
		c.log.WithField("page", page).Warnf("Skipped page %d: %v", page, err)
		c.tracker.IncrementPagesFailed()
		c.recordPage(page, storage.StatusFailed, err)
		return
	}

	c.tracker.IncrementPagesFetched()
	c.recordPage(page, storage.StatusFetched, nil)

	items := c.adapter.Items(doc)
	c.tracker.AddImagesFound(len(items))
	c.log.Infof("Page %d/%d: %d images", page, ref.TotalPages, len(items))

	var g errgroup.Group
	g.SetLimit(c.cfg.ConcurrentDownloads)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			c.processItem(ctx, page, item, outputDir)
			// Item failures never cancel sibling downloads
			return nil
		})
	}
	g.Wait()
}

// processItem downloads a single image and accounts for the outcome
func (c *Crawler) processItem(ctx context.Context, page int, item gallery.ImageDescriptor, outputDir string) {
	entry := c.log.WithFields(logrus.Fields{
		"page":   page,
		"id":     item.ID,
		"server": item.Server,
		"type":   item.Type,
	})

	rec := storage.ItemRecord{
		PageNumber: page,
		ImageID:    item.ID,
		Server:     item.Server,
		FileType:   item.Type,
		Path:       filepath.Join(outputDir, item.Filename()),
	}

	res, err := c.downloader.Download(ctx, item, outputDir)
	switch {
	case err == nil:
		c.tracker.RecordImageDownloaded(res.Bytes)
		rec.Status = storage.StatusDownloaded
		rec.Bytes = res.Bytes
		entry.Debugf("Saved %s (%d bytes in %v)", res.Path, res.Bytes, res.Duration)
	case errors.Is(err, download.ErrExists):
		c.tracker.IncrementImagesSkipped()
		rec.Status = storage.StatusSkipped
		rec.Error = err.Error()
		entry.Warnf("Skipped image %s: already exists", rec.Path)
	default:
		c.tracker.IncrementImagesFailed()
		rec.Status = storage.StatusFailed
		rec.Error = err.Error()
		entry.Errorf("Failed to download image: %v", err)
	}

	c.recordItem(rec)
}

// Ledger helpers: history is best effort and never changes control flow

// reportPreviousRun logs how the last crawl of the same gallery ended
func (c *Crawler) reportPreviousRun(ref gallery.Reference) {
	if c.recorder == nil {
		return
	}
	prev, err := c.recorder.LastRun(ref.BaseURL)
	if err != nil {
		c.log.Warnf("Failed to read previous run: %v", err)
		return
	}
	if prev == nil {
		return
	}

	counts, err := c.recorder.CountItems(prev.RunID)
	if err != nil {
		c.log.Warnf("Failed to count items of run %d: %v", prev.RunID, err)
		return
	}
	pages, err := c.recorder.ListPages(prev.RunID)
	if err != nil {
		c.log.Warnf("Failed to list pages of run %d: %v", prev.RunID, err)
		return
	}
	var failedPages []int
	for _, p := range pages {
		if p.Status == storage.StatusFailed {
			failedPages = append(failedPages, p.PageNumber)
		}
	}

	c.log.WithField("run", prev.RunID).Infof("Previous run %d (%s, started %s): %d downloaded, %d skipped, %d failed, failed pages %v",
		prev.RunID, prev.Status, prev.StartedAt.Format(time.RFC3339),
		counts[storage.StatusDownloaded], counts[storage.StatusSkipped], counts[storage.StatusFailed], failedPages)
}

func (c *Crawler) startRun(ref gallery.Reference, outputDir string) {
	if c.recorder == nil {
		return
	}
	runID, err := c.recorder.StartRun(ref.BaseURL, ref.Title, ref.TotalPages, outputDir)
	if err != nil {
		c.log.Warnf("Failed to record run: %v", err)
		return
	}
	c.runID = runID
}

func (c *Crawler) finishRun(status string) {
	if c.recorder == nil || c.runID == 0 {
		return
	}
	if err := c.recorder.FinishRun(c.runID, status); err != nil {
		c.log.Warnf("Failed to finish run %d: %v", c.runID, err)
	}
}

func (c *Crawler) recordPage(page int, status string, pageErr error) {
	if c.recorder == nil || c.runID == 0 {
		return
	}
	rec := storage.PageRecord{RunID: c.runID, PageNumber: page, Status: status}
	if pageErr != nil {
		rec.Error = pageErr.Error()
	}
	if err := c.recorder.RecordPage(rec); err != nil {
		c.log.Warnf("Failed to record page %d: %v", page, err)
	}
}

func (c *Crawler) recordItem(rec storage.ItemRecord) {
	if c.recorder == nil || c.runID == 0 {
		return
	}
	rec.RunID = c.runID
	if err := c.recorder.RecordItem(rec); err != nil {
		c.log.Warnf("Failed to record item %s: %v", rec.ImageID, err)
	}
}

// String renders the summary for the final log line
func (s *Summary) String() string {
	return fmt.Sprintf("%s: %d/%d pages, %d downloaded, %d skipped, %d failed",
		s.Gallery.Title, s.Metrics.PagesFetched, s.Gallery.TotalPages,
		s.Metrics.ImagesDownloaded, s.Metrics.ImagesSkipped, s.Metrics.ImagesFailed)
}
