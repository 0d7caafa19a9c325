package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultDownloadBaseURL is the alphacoders wallpaper download endpoint
const DefaultDownloadBaseURL = "https://initiate.alphacoders.com/download/wallpaper"

// Config holds all runtime configuration parameters
type Config struct {
	OutputDir           string `json:"output_dir"`
	DownloadBaseURL     string `json:"download_base_url"`
	UserAgent           string `json:"user_agent"`
	ConcurrentPages     int    `json:"concurrent_pages"`
	ConcurrentDownloads int    `json:"concurrent_downloads"`
	RequestTimeoutMs    int    `json:"request_timeout_ms"`
	DownloadTimeoutMs   int    `json:"download_timeout_ms"`
	VerifyImages        bool   `json:"verify_images"`
	DBPath              string `json:"db_path"`      // empty disables the run history
	MetricsPath         string `json:"metrics_path"` // empty disables the metrics export
	LogLevel            string `json:"log_level"`
}

// LoadConfig reads and validates configuration from a JSON file.
// A missing file is not an error: defaults and environment overrides apply.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logrus.Debugf("Config file %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer file.Close()
		decoder := json.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every field at its default value
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyEnv overlays WALLWEAVER_* environment variables on top of the file values
func applyEnv(cfg *Config) error {
	if v := os.Getenv("WALLWEAVER_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("WALLWEAVER_DOWNLOAD_BASE_URL"); v != "" {
		cfg.DownloadBaseURL = v
	}
	if v := os.Getenv("WALLWEAVER_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("WALLWEAVER_METRICS_PATH"); v != "" {
		cfg.MetricsPath = v
	}
	if v := os.Getenv("WALLWEAVER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WALLWEAVER_CONCURRENT_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WALLWEAVER_CONCURRENT_PAGES: %w", err)
		}
		cfg.ConcurrentPages = n
	}
	if v := os.Getenv("WALLWEAVER_CONCURRENT_DOWNLOADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WALLWEAVER_CONCURRENT_DOWNLOADS: %w", err)
		}
		cfg.ConcurrentDownloads = n
	}
	return nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.DownloadBaseURL == "" {
		cfg.DownloadBaseURL = DefaultDownloadBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; wall-weaver)"
	}
	if cfg.ConcurrentPages == 0 {
		cfg.ConcurrentPages = 1
	}
	if cfg.ConcurrentDownloads == 0 {
		cfg.ConcurrentDownloads = 1
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 30000
	}
	if cfg.DownloadTimeoutMs == 0 {
		cfg.DownloadTimeoutMs = 120000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.DownloadBaseURL = strings.TrimRight(cfg.DownloadBaseURL, "/")
}

// validate checks that values are sensible
func validate(cfg *Config) error {
	if cfg.ConcurrentPages < 1 {
		return fmt.Errorf("concurrent_pages must be >= 1")
	}
	if cfg.ConcurrentDownloads < 1 {
		return fmt.Errorf("concurrent_downloads must be >= 1")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.DownloadTimeoutMs < 1000 {
		return fmt.Errorf("download_timeout_ms must be >= 1000")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if err := ValidateGalleryURL(cfg.DownloadBaseURL); err != nil {
		return fmt.Errorf("download_base_url: %w", err)
	}
	return nil
}

// ValidateGalleryURL checks that raw is an absolute http(s) URL with a host
func ValidateGalleryURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if parsed.Hostname() == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}
