package providers

import (
	"context"
	"fmt"
	"net/url"
)

// Page is a fetched source page.
type Page struct {
	URL  *url.URL
	Body []byte
}

// Provider is implemented by every page source.
type Provider interface {
	// Fetch downloads the source page once.
	Fetch(ctx context.Context) (*Page, error)

	// Name returns a short identifier used in logs and metrics.
	Name() string
}

// FetchError means the source page could not be downloaded: a transport failure or a
// non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
