package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"news-scraper/htmlutil"
	"news-scraper/models"
	"news-scraper/providers"
)

// CompleteMessage is the confirmation returned with every finished scrape.
const CompleteMessage = "Scrape Complete"

// ArticleCreator persists one article.
type ArticleCreator interface {
	CreateArticle(ctx context.Context, a *models.Article) error
}

// Archiver keeps a copy of each fetched page.
type Archiver interface {
	Store(ctx context.Context, body []byte) (string, error)
}

// ItemOutcome is the result for one matched element.
type ItemOutcome struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	ArticleID uint   `json:"article_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ScrapeResult aggregates every item of one run.
type ScrapeResult struct {
	Message     string        `json:"message"`
	Source      string        `json:"source"`
	SnapshotURL string        `json:"snapshot_url,omitempty"`
	Matched     int           `json:"matched"`
	Created     int           `json:"created"`
	Failed      int           `json:"failed"`
	Items       []ItemOutcome `json:"items"`
}

// Outcome classifies the run for metrics: "ok", "partial" or "failed".
// A run that matched nothing is "ok".
func (r *ScrapeResult) Outcome() string {
	switch {
	case r.Failed == 0:
		return "ok"
	case r.Created == 0:
		return "failed"
	default:
		return "partial"
	}
}

// ScrapeService runs the fetch, extract and persist sequence.
type ScrapeService struct {
	Store    ArticleCreator
	Provider providers.Provider
	Archive  Archiver
	Selector string
	Logger   *zap.Logger
}

// NewScrapeService validates selector and wires the service. archive may be nil.
func NewScrapeService(store ArticleCreator, provider providers.Provider, archive Archiver, selector string, logger *zap.Logger) (*ScrapeService, error) {
	if err := htmlutil.CompileSelector(selector); err != nil {
		return nil, err
	}
	return &ScrapeService{
		Store:    store,
		Provider: provider,
		Archive:  archive,
		Selector: selector,
		Logger:   logger,
	}, nil
}

// Run fetches the page once and creates one article per matched element, in document order.
// A failed fetch returns a *providers.FetchError and creates nothing. Per-item failures are
// reported in the result and never stop the remaining items.
func (s *ScrapeService) Run(ctx context.Context) (*ScrapeResult, error) {
	log := s.Logger.With(zap.String("provider", s.Provider.Name()), zap.String("selector", s.Selector))
	log.Info("Starting scrape.")

	page, err := s.Provider.Fetch(ctx)
	if err != nil {
		log.Error("Fetching source page failed", zap.Error(err))
		return nil, err
	}

	result := &ScrapeResult{
		Message: CompleteMessage,
		Source:  page.URL.String(),
		Items:   []ItemOutcome{},
	}

	if s.Archive != nil {
		link, err := s.Archive.Store(ctx, page.Body)
		if err != nil {
			log.Warn("Archiving snapshot failed", zap.Error(err))
		} else {
			result.SnapshotURL = link
		}
	}

	doc, err := htmlutil.Parse(string(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	headlines := htmlutil.ExtractHeadlines(doc, s.Selector, page.URL)
	result.Matched = len(headlines)

	for i, h := range headlines {
		item := ItemOutcome{Index: i, Title: h.Title, Link: h.Link}
		article := &models.Article{Title: h.Title, Link: h.Link}
		if err := s.Store.CreateArticle(ctx, article); err != nil {
			log.Warn("Saving article failed", zap.Int("index", i), zap.String("title", h.Title), zap.Error(err))
			item.Error = err.Error()
			result.Failed++
		} else {
			item.ArticleID = article.ID
			result.Created++
		}
		result.Items = append(result.Items, item)
	}

	log.Info("Scrape completed",
		zap.Int("matched", result.Matched),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed))
	return result, nil
}
