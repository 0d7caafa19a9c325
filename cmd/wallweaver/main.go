package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alvmarrod/wall-weaver/internal/config"
	"github.com/alvmarrod/wall-weaver/internal/crawler"
	"github.com/alvmarrod/wall-weaver/internal/download"
	"github.com/alvmarrod/wall-weaver/internal/fetch"
	"github.com/alvmarrod/wall-weaver/internal/gallery"
	"github.com/alvmarrod/wall-weaver/internal/metrics"
	"github.com/alvmarrod/wall-weaver/internal/storage"
	"github.com/alvmarrod/wall-weaver/internal/version"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Process exit codes
const (
	exitOK          = 0
	exitFatal       = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("wallweaver", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "config.json", "path to the JSON configuration file")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: wallweaver [-config path] <gallery-url>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stderr, "Please specify a valid gallery url.")
		flags.Usage()
		return exitUsage
	}
	galleryURL := flags.Arg(0)
	if err := config.ValidateGalleryURL(galleryURL); err != nil {
		fmt.Fprintf(stderr, "Please specify a valid gallery url: %v\n", err)
		return exitUsage
	}

	// Optional .env with WALLWEAVER_* overrides
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "Failed to load .env: %v\n", err)
		return exitFatal
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitFatal
	}

	// Configure logging
	log := logrus.New()
	log.SetOutput(stderr)
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	log.Infof("Wall Weaver v%s starting...", version.Version)
	log.Infof("Configuration loaded: output=%s, pages workers=%d, download workers=%d",
		cfg.OutputDir, cfg.ConcurrentPages, cfg.ConcurrentDownloads)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// History is opt-in; a broken ledger never blocks a download
	var recorder crawler.Recorder
	if cfg.DBPath != "" {
		store, err := storage.NewStorage(cfg.DBPath)
		if err != nil {
			log.Warnf("Download history disabled: %v", err)
		} else {
			defer store.Close()
			recorder = store
			log.Debugf("Database initialized: %s", cfg.DBPath)
		}
	}

	tracker := metrics.NewTracker()
	adapter := gallery.ForURL(galleryURL, cfg.DownloadBaseURL)
	fetcher := fetch.NewPageFetcher(cfg.UserAgent, time.Duration(cfg.RequestTimeoutMs)*time.Millisecond)
	client := fetch.NewClient(cfg.UserAgent, time.Duration(cfg.DownloadTimeoutMs)*time.Millisecond)
	downloader := download.NewDownloader(client, adapter, cfg.VerifyImages, log)
	c := crawler.NewCrawler(cfg, fetcher, adapter, downloader, tracker, recorder, log)

	// Start progress logger
	stopProgress := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	summary, err := c.Run(ctx, galleryURL)
	close(stopProgress)

	code, reason := exitCode(err)
	if cfg.MetricsPath != "" {
		if err := tracker.WriteToFile(cfg.MetricsPath, reason); err != nil {
			log.Errorf("Failed to write metrics: %v", err)
		} else {
			log.Debugf("Metrics written to %s", cfg.MetricsPath)
		}
	}

	switch {
	case code == exitOK:
		log.Infof("Done: %s", summary)
	case code == exitInterrupted && summary != nil:
		log.Warnf("Interrupted: %s", summary)
	case code == exitInterrupted:
		log.Warn("Interrupted before the gallery was read")
	default:
		log.Errorf("Unable to continue: %v", err)
	}
	return code
}

// exitCode maps a crawl result to a process status and a termination reason
func exitCode(err error) (int, string) {
	if err == nil {
		return exitOK, "completed"
	}
	var fatal *crawler.FatalError
	if errors.As(err, &fatal) && fatal.Stage == crawler.StageInterrupted {
		return exitInterrupted, "interrupted"
	}
	return exitFatal, "fatal"
}
