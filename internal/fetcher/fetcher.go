// Package fetcher retrieves raw page markup over HTTP, pacing requests to the
// origin and optionally serving repeats from a page cache.
package fetcher

import "context"

// PageFetcher returns the raw markup for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DefaultUserAgent is sent when no user agent is configured. The origin
// serves a reduced page to unknown agents, so this mimics a desktop browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"
