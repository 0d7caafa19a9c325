package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, DefaultDownloadBaseURL, cfg.DownloadBaseURL)
	assert.Equal(t, 1, cfg.ConcurrentPages)
	assert.Equal(t, 1, cfg.ConcurrentDownloads)
	assert.Equal(t, 30000, cfg.RequestTimeoutMs)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.VerifyImages)
	assert.Empty(t, cfg.DBPath, "history is opt-in")
	assert.Empty(t, cfg.MetricsPath, "metrics export is opt-in")
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"output_dir": "walls",
		"download_base_url": "http://127.0.0.1:8080/dl/",
		"concurrent_pages": 2,
		"concurrent_downloads": 4,
		"verify_images": true,
		"log_level": "debug"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "walls", cfg.OutputDir)
	assert.Equal(t, "http://127.0.0.1:8080/dl", cfg.DownloadBaseURL)
	assert.Equal(t, 2, cfg.ConcurrentPages)
	assert.Equal(t, 4, cfg.ConcurrentDownloads)
	assert.True(t, cfg.VerifyImages)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"output_dir": "from-file", "concurrent_pages": 2}`)
	t.Setenv("WALLWEAVER_OUTPUT_DIR", "from-env")
	t.Setenv("WALLWEAVER_CONCURRENT_PAGES", "3")
	t.Setenv("WALLWEAVER_DB_PATH", "history.db")
	t.Setenv("WALLWEAVER_METRICS_PATH", "metrics.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OutputDir)
	assert.Equal(t, 3, cfg.ConcurrentPages)
	assert.Equal(t, "history.db", cfg.DBPath)
	assert.Equal(t, "metrics.json", cfg.MetricsPath)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"output_dir": `},
		{"unknown field", `{"seed_url": "https://example.com"}`},
		{"negative workers", `{"concurrent_pages": -1}`},
		{"short timeout", `{"request_timeout_ms": 10}`},
		{"bad level", `{"log_level": "loud"}`},
		{"bad download base", `{"download_base_url": "ftp://example.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("WALLWEAVER_CONCURRENT_DOWNLOADS", "many")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestValidateGalleryURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"https://wall.alphacoders.com/by_sub_category.php?id=1", false},
		{"http://x.test/g", false},
		{"", true},
		{"   ", true},
		{"wall.alphacoders.com/album", true},
		{"ftp://x.test/g", true},
		{"https://", true},
		{"http://%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateGalleryURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
