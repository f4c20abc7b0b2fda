package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "SCRAPE_SELECTOR", "FETCH_TIMEOUT", "ARCHIVE_S3_BUCKET"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.HTTPPort)
	assert.Equal(t, "postgres://localhost:5432/news?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "h2.xfe0h7-0", cfg.ScrapeSelector)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "sqlite::memory:")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("ARCHIVE_S3_BUCKET", "snapshots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite::memory:", cfg.DatabaseURL)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.ArchiveEnabled())
}
