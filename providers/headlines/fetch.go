package headlines

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"news-scraper/providers"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Options configures a Fetcher.
type Options struct {
	SourceURL string
	UserAgent string
	Timeout   time.Duration
}

// Fetcher downloads the headline page with a single GET. It never retries.
type Fetcher struct {
	source *url.URL
	http   *resty.Client
	Logger *zap.Logger
}

// NewFetcher creates a fetcher for opts.SourceURL.
func NewFetcher(opts Options, logger *zap.Logger) (*Fetcher, error) {
	source, err := url.Parse(opts.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if source.Scheme != "http" && source.Scheme != "https" {
		return nil, fmt.Errorf("source url %q must be http or https", opts.SourceURL)
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(0)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	client.SetHeader("Accept", "text/html,application/xhtml+xml")

	return &Fetcher{source: source, http: client, Logger: logger}, nil
}

// Name implements providers.Provider.
func (f *Fetcher) Name() string {
	return f.source.Hostname()
}

// Fetch implements providers.Provider.
func (f *Fetcher) Fetch(ctx context.Context) (*providers.Page, error) {
	rawURL := f.source.String()
	log := f.Logger.With(zap.String("url", rawURL))
	log.Debug("Fetching source page.")

	res, err := f.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, &providers.FetchError{URL: rawURL, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &providers.FetchError{URL: rawURL, StatusCode: res.StatusCode()}
	}

	// redirects may have moved us; relative links resolve against the final URL
	final := f.source
	if raw := res.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL
	}

	log.Info("Source page fetched.", zap.Int("status", res.StatusCode()), zap.Int("bytes", len(res.Body())))
	return &providers.Page{URL: final, Body: res.Body()}, nil
}
