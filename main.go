package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-scraper/config"
	"news-scraper/providers"
	"news-scraper/providers/headlines"
	"news-scraper/services"
	"news-scraper/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	articlesScrapedCounter prometheus.Counter
	scrapeRunsCounter      *prometheus.CounterVec
	notesCreatedCounter    prometheus.Counter
)

func init() {
	articlesScrapedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_scraped_total",
			Help: "Total number of articles created by scrapes.",
		},
	)
	scrapeRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_runs_total",
			Help: "Scrape runs by outcome (ok, partial, failed, fetch_error, error).",
		},
		[]string{"outcome"},
	)
	notesCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notes_created_total",
			Help: "Total number of notes attached to articles.",
		},
	)
	prometheus.MustRegister(articlesScrapedCounter, scrapeRunsCounter, notesCreatedCounter)
}

func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// runScrape runs one scrape and records its metrics. Used by the route and the cron job.
func runScrape(ctx context.Context, scraper *services.ScrapeService) (*services.ScrapeResult, error) {
	result, err := scraper.Run(ctx)
	if err != nil {
		var fetchErr *providers.FetchError
		if errors.As(err, &fetchErr) {
			scrapeRunsCounter.WithLabelValues("fetch_error").Inc()
		} else {
			scrapeRunsCounter.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	scrapeRunsCounter.WithLabelValues(result.Outcome()).Inc()
	articlesScrapedCounter.Add(float64(result.Created))
	return result, nil
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database
	store, err := storage.Open(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := store.Migrate(); err != nil {
		logging.Fatal("Database migration failed", zap.Error(err))
	}

	// Setup Services
	fetcher, err := headlines.NewFetcher(headlines.Options{
		SourceURL: cfg.SourceURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	}, logging)
	if err != nil {
		logging.Fatal("Invalid scrape source", zap.Error(err))
	}

	var archive services.Archiver
	if cfg.ArchiveEnabled() {
		s3Client, err := storage.NewS3Client(context.Background(), storage.S3Options{
			URL:    cfg.ArchiveS3URL,
			Region: cfg.ArchiveS3Region,
			Key:    cfg.ArchiveS3Key,
			Secret: cfg.ArchiveS3Secret,
		})
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		archive = storage.NewSnapshotArchive(s3Client, cfg.ArchiveS3Bucket, cfg.ArchiveS3URL)
		logging.Info("Snapshot archive enabled", zap.String("bucket", cfg.ArchiveS3Bucket))
	}

	scraper, err := services.NewScrapeService(store, fetcher, archive, cfg.ScrapeSelector, logging)
	if err != nil {
		logging.Fatal("Scrape service creation failed", zap.Error(err))
	}

	// Setup Cron
	cronScheduler := cron.New()
	if cfg.ScrapeSchedule != "" {
		_, err := cronScheduler.AddFunc(cfg.ScrapeSchedule, func() {
			logging.Info("Running scheduled scrape...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := runScrape(ctx, scraper); err != nil {
				logging.Error("Scheduled scrape failed", zap.Error(err))
			}
		})
		if err != nil {
			logging.Fatal("Invalid SCRAPE_SCHEDULE", zap.String("schedule", cfg.ScrapeSchedule), zap.Error(err))
		}
		cronScheduler.Start()
		logging.Info("Scheduled scrape enabled", zap.String("schedule", cfg.ScrapeSchedule))
	}

	router := newRouter(store, scraper, cfg.PublicDir, logging)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
	<-cronScheduler.Stop().Done()
	if err := store.Close(); err != nil {
		logging.Error("Closing database failed", zap.Error(err))
	}
	logging.Info("Server stopped.")
}
