package scraper

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"mallcatalog/models"
)

var tracer trace.Tracer = otel.Tracer("mallcatalog/scraper")

// Target is one page to retrieve
type Target struct {
	URL        string
	RenderMode models.RenderMode
	Encoding   string // optional charset label, e.g. "euc-kr"
}

// Page is the retrieved markup plus response metadata
type Page struct {
	HTML     string
	FinalURL string
	Status   int
}

// Fetcher retrieves a page. Implementations never retry; retry policy belongs to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, target Target) (*Page, error)
}

// FetchError reports a network failure, timeout, non-2xx status or navigation failure
type FetchError struct {
	URL    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsFetchError reports whether err carries a *FetchError
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// RouterFetcher dispatches to the static or browser fetcher by render mode
type RouterFetcher struct {
	Static   Fetcher
	Rendered Fetcher
}

func (r *RouterFetcher) Fetch(ctx context.Context, target Target) (*Page, error) {
	if target.RenderMode == models.RenderBrowser {
		if r.Rendered == nil {
			return nil, &FetchError{URL: target.URL, Cause: errors.New("no browser fetcher configured")}
		}
		return r.Rendered.Fetch(ctx, target)
	}
	return r.Static.Fetch(ctx, target)
}
