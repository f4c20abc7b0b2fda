package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"news-scraper/providers"
	"news-scraper/providers/headlines"
	"news-scraper/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const selector = "h2.xfe0h7-0"

const page = `<html><body>
<a href="/r/golang/one"><h2 class="xfe0h7-0">First headline</h2></a>
<a href="https://example.org/two"><h2 class="xfe0h7-0">Second headline</h2></a>
<a href="/r/golang/three"><h2 class="xfe0h7-0">Third headline</h2></a>
</body></html>`

type fakeArchive struct {
	bodies [][]byte
	err    error
}

func (f *fakeArchive) Store(_ context.Context, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.bodies = append(f.bodies, body)
	return "s3://pages/snapshot.html", nil
}

func serve(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestService(t *testing.T, sourceURL string, archive Archiver) (*ScrapeService, *storage.Store) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := storage.Open(":memory:", "silent")
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })

	fetcher, err := headlines.NewFetcher(headlines.Options{SourceURL: sourceURL, Timeout: 5 * time.Second}, logger)
	require.NoError(t, err)

	svc, err := NewScrapeService(store, fetcher, archive, selector, logger)
	require.NoError(t, err)
	return svc, store
}

func TestRunCreatesOneArticlePerMatch(t *testing.T) {
	url := serve(t, http.StatusOK, page)
	svc, store := newTestService(t, url, nil)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CompleteMessage, result.Message)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 3, result.Created)
	assert.Zero(t, result.Failed)
	assert.Equal(t, "ok", result.Outcome())

	articles, err := store.FindArticles(context.Background(), storage.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, articles, 3)
	assert.Equal(t, "First headline", articles[0].Title)
	assert.Equal(t, url+"/r/golang/one", articles[0].Link)
	assert.Equal(t, "https://example.org/two", articles[1].Link)
	assert.Equal(t, "Third headline", articles[2].Title)
	for i, item := range result.Items {
		assert.Equal(t, articles[i].ID, item.ArticleID)
	}
}

func TestRunNoMatchesCreatesNothing(t *testing.T) {
	svc, store := newTestService(t, serve(t, http.StatusOK, "<p>quiet day</p>"), nil)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Matched)
	assert.Empty(t, result.Items)
	assert.Equal(t, "ok", result.Outcome())

	articles, err := store.FindArticles(context.Background(), storage.ArticleFilter{})
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestRunItemFailureDoesNotStopOthers(t *testing.T) {
	body := `<a href="/a"><h2 class="xfe0h7-0">Has link</h2></a>
<div><h2 class="xfe0h7-0">No link</h2></div>
<a href="/c"><h2 class="xfe0h7-0">Also has link</h2></a>`
	svc, store := newTestService(t, serve(t, http.StatusOK, body), nil)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "partial", result.Outcome())
	assert.Contains(t, result.Items[1].Error, "link is required")
	assert.Zero(t, result.Items[1].ArticleID)

	articles, err := store.FindArticles(context.Background(), storage.ArticleFilter{})
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestRunFetchFailure(t *testing.T) {
	svc, store := newTestService(t, serve(t, http.StatusBadGateway, "down"), nil)

	_, err := svc.Run(context.Background())
	var fetchErr *providers.FetchError
	require.True(t, errors.As(err, &fetchErr))

	articles, err := store.FindArticles(context.Background(), storage.ArticleFilter{})
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestRunArchivesSnapshot(t *testing.T) {
	archive := &fakeArchive{}
	svc, _ := newTestService(t, serve(t, http.StatusOK, page), archive)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3://pages/snapshot.html", result.SnapshotURL)
	require.Len(t, archive.bodies, 1)
	assert.Equal(t, page, string(archive.bodies[0]))
}

func TestRunArchiveFailureIsNotFatal(t *testing.T) {
	svc, _ := newTestService(t, serve(t, http.StatusOK, page), &fakeArchive{err: errors.New("bucket gone")})

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.SnapshotURL)
	assert.Equal(t, 3, result.Created)
}

func TestNewScrapeServiceRejectsBadSelector(t *testing.T) {
	_, err := NewScrapeService(nil, nil, nil, "h2[[[", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestOutcomeAllFailed(t *testing.T) {
	r := &ScrapeResult{Matched: 2, Failed: 2}
	assert.Equal(t, "failed", r.Outcome())
}
