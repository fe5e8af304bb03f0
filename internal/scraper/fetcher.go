package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"adluc/discovery-service/internal/config"
)

// maxFeedBytes caps how much of a response body is read.
const maxFeedBytes = 10 << 20

// ErrEmptyBody is returned when a source answers 2xx with nothing in it.
var ErrEmptyBody = errors.New("empty response body")

// StatusError reports a non-2xx answer from a feed source.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.URL, e.StatusCode)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Fetcher retrieves the raw bytes of one feed document.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]byte, error)
}

// HTTPFetcher fetches feeds over HTTP with a per-request timeout and an
// exponential retry budget for transient failures.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxAttempts int
	backoffBase time.Duration
	logger      *zap.Logger
}

// NewHTTPFetcher constructs a fetcher with a shared HTTP client.
func NewHTTPFetcher(cfg config.FeedConfig, logger *zap.Logger) *HTTPFetcher {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &HTTPFetcher{
		client:      &http.Client{Timeout: cfg.Timeout},
		userAgent:   cfg.UserAgent,
		maxAttempts: attempts,
		backoffBase: cfg.BackoffBase,
		logger:      logger.Named("fetcher"),
	}
}

// Fetch returns the body of sourceURL. Transient failures (connection errors,
// 429 and 5xx gateway statuses) are retried; anything else fails at once.
func (f *HTTPFetcher) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	var (
		body     []byte
		attempts int
	)

	op := func() error {
		attempts++
		b, err := f.fetchOnce(ctx, sourceURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Debug("retrying feed fetch",
			zap.String("source", sourceURL),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, f.newBackOff(ctx), notify); err != nil {
		return nil, fmt.Errorf("fetch %s (%d attempt(s)): %w", sourceURL, attempts, err)
	}
	return body, nil
}

// newBackOff doubles the wait from backoffBase and allows maxAttempts tries.
func (f *HTTPFetcher) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.backoffBase
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = f.backoffBase * time.Duration(1<<f.maxAttempts)
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(f.maxAttempts-1)), ctx)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		se := &StatusError{URL: sourceURL, StatusCode: resp.StatusCode}
		if se.Transient() {
			return nil, se
		}
		return nil, backoff.Permanent(se)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, backoff.Permanent(ErrEmptyBody)
	}
	return body, nil
}
