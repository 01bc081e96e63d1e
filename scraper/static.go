package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html/charset"
)

// StaticOptions configures the plain HTTP fetcher
type StaticOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
}

// StaticFetcher retrieves server-rendered pages with a direct HTTP request
type StaticFetcher struct {
	http *resty.Client
}

// NewStaticFetcher creates a fetcher with browser-like headers, a bounded redirect count and
// a request timeout
func NewStaticFetcher(opts StaticOptions) *StaticFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects))
	client.SetHeaders(map[string]string{
		"User-Agent":      opts.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
	})

	return &StaticFetcher{http: client}
}

func (f *StaticFetcher) Fetch(ctx context.Context, target Target) (*Page, error) {
	ctx, span := tracer.Start(ctx, "StaticFetcher.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", target.URL))

	res, err := f.http.R().
		SetContext(ctx).
		Get(target.URL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, &FetchError{URL: target.URL, Cause: err}
	}

	status := res.StatusCode()
	span.SetAttributes(attribute.Int("status", status))
	if status < 200 || status > 299 {
		span.SetStatus(codes.Error, "unexpected status")
		return nil, &FetchError{URL: target.URL, Status: status, Cause: fmt.Errorf("unexpected status %q", res.Status())}
	}

	html, err := decodeBody(res.Body(), res.Header().Get("Content-Type"), target.Encoding)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode body")
		return nil, &FetchError{URL: target.URL, Status: status, Cause: err}
	}

	finalURL := target.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalURL = res.RawResponse.Request.URL.String()
	}

	return &Page{HTML: html, FinalURL: finalURL, Status: status}, nil
}

// decodeBody converts the response body to UTF-8. An explicit label wins over the
// Content-Type header and <meta charset> sniffing.
func decodeBody(body []byte, contentType, label string) (string, error) {
	if label != "" {
		enc, _ := charset.Lookup(label)
		if enc == nil {
			return "", fmt.Errorf("unknown encoding %q", label)
		}
		out, err := enc.NewDecoder().Bytes(body)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", label, err)
		}
		return string(out), nil
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
