package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting read from the environment (and an optional .env file).
type Config struct {
	HTTPPort    string `envconfig:"PORT" default:"3000"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"postgres://localhost:5432/news?sslmode=disable"`
	DBLogLevel  string `envconfig:"DB_LOG_LEVEL" default:"silent"`
	PublicDir   string `envconfig:"PUBLIC_DIR" default:"public"`

	// Scrape source
	SourceURL      string        `envconfig:"SOURCE_URL" default:"https://www.reddit.com/"`
	ScrapeSelector string        `envconfig:"SCRAPE_SELECTOR" default:"h2.xfe0h7-0"`
	FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	UserAgent      string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"`

	// Empty disables the scheduled scrape.
	ScrapeSchedule string `envconfig:"SCRAPE_SCHEDULE"`

	// Snapshot archive, disabled while ArchiveS3Bucket is empty.
	ArchiveS3URL    string `envconfig:"ARCHIVE_S3_URL"`
	ArchiveS3Region string `envconfig:"ARCHIVE_S3_REGION" default:"us-east-1"`
	ArchiveS3Key    string `envconfig:"ARCHIVE_S3_KEY"`
	ArchiveS3Secret string `envconfig:"ARCHIVE_S3_SECRET"`
	ArchiveS3Bucket string `envconfig:"ARCHIVE_S3_BUCKET"`
}

// ArchiveEnabled reports whether fetched pages should be uploaded to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveS3Bucket != ""
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
