// Package fetcher downloads firm web pages for email extraction, with
// per-host adaptive rate limiting, bounded retries, anti-bot detection and
// charset decoding.
package fetcher

import (
	"context"
	"fmt"
)

// Page is a successfully fetched document, decoded to UTF-8.
type Page struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        string
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// StatusError is returned for non-2xx responses that were not classified as
// blocks.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetcher: %s returned status %d", e.URL, e.StatusCode)
}

// BlockedError is returned when a site answers with an anti-bot wall instead
// of content.
type BlockedError struct {
	URL        string
	StatusCode int
	Type       BlockType
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("fetcher: %s blocked (%s, status %d)", e.URL, e.Type, e.StatusCode)
}
