package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/boxoffice-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration

	// Delay is the fixed pause enforced between consecutive requests.
	Delay time.Duration

	Retry        resilience.RetryConfig
	MaxBodyBytes int64
}

// HTTPFetcher implements PageFetcher with net/http, a fixed pacing delay and
// retry on transient failures.
type HTTPFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 8 << 20
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}

	// Burst 1: the first request goes out immediately, each later one waits
	// a full Delay after the previous.
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Fetch GETs rawURL and returns the body of a 200 response.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	retry := f.opts.Retry
	retry.OnRetry = resilience.RetryLogger(rawURL)

	body, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		return f.fetchOnce(ctx, rawURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s", rawURL)
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "pacing wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "http get")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "http get"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "read body"), resp.StatusCode)
	}

	zap.L().Debug("fetched page",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("blocked (%s)", kind)
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(eris.Errorf("http %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
