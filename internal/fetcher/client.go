// Package fetcher provides the rate-limited HTTP client all marketplace
// requests pass through.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

// Default configuration values.
const (
	defaultMaxInFlight    = 4
	defaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// Config holds fetcher configuration.
type Config struct {
	MaxInFlight    int           `yaml:"max_in_flight"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	UserAgent      string        `yaml:"user_agent"`
}

// WithDefaults returns a copy of the config with default values applied
// for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = defaultMaxInFlight
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return c
}

// StatusError is returned for any non-2xx response. Callers decide
// whether to retry or skip.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Client bounds concurrent in-flight requests to a fixed ceiling.
// Excess requests queue on the semaphore and are dispatched as slots
// free up. The ceiling is process-wide: jobs running concurrently share
// the same fetch budget.
type Client struct {
	httpClient *http.Client
	sem        chan struct{}
	userAgent  string
	log        logger.Interface
}

// New creates a new rate-limited client.
func New(cfg Config, log logger.Interface) *Client {
	cfg = cfg.WithDefaults()

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		sem:        make(chan struct{}, cfg.MaxInFlight),
		userAgent:  cfg.UserAgent,
		log:        log,
	}
}

// Fetch retrieves the HTML body of the given URL. It blocks while all
// in-flight slots are taken, injects default User-Agent and Accept
// headers, and treats any non-2xx status as an error.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for fetch slot: %w", ctx.Err())
	}
	defer func() { <-c.sem }()

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if reqErr != nil {
		return "", fmt.Errorf("create request: %w", reqErr)
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", defaultAccept)
	}

	start := time.Now()

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("http fetch: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)

	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return "", fmt.Errorf("read response body: %w", readErr)
	}

	c.log.Debug("page fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	return string(body), nil
}
