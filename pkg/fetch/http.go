package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"catalogscraper/pkg/config"
	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/page"
	"catalogscraper/pkg/retry"
)

// HTTPClient fetches pages and assets with net/http
type HTTPClient struct {
	client *http.Client
	cfg    config.FetcherConfig
	opts   Options
	robots *RobotsPolicy
}

// NewHTTPClient creates the default engine
func NewHTTPClient(cfg config.FetcherConfig, opts Options) *HTTPClient {
	opts.defaults()
	client := &http.Client{Timeout: cfg.Timeout}

	c := &HTTPClient{client: client, cfg: cfg, opts: opts}
	if cfg.RespectRobots {
		c.robots = NewRobotsPolicy(client, cfg.UserAgent, opts.Logger)
	}
	return c
}

// Navigate loads and parses the page at rawURL
func (c *HTTPClient) Navigate(ctx context.Context, rawURL string) (page.Page, error) {
	return retry.DoWithResult(ctx, c.opts.Retry, func(ctx context.Context) (page.Page, error) {
		body, contentType, err := c.get(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return parsePage(rawURL, body, contentType)
	})
}

// Fetch downloads rawURL. The status is 0 when no response was received.
func (c *HTTPClient) Fetch(ctx context.Context, rawURL string) ([]byte, int, error) {
	var status int
	body, err := retry.DoWithResult(ctx, c.opts.Retry, func(ctx context.Context) ([]byte, error) {
		body, _, err := c.get(ctx, rawURL)
		status = statusOf(err)
		return body, err
	})
	return body, status, err
}

func (c *HTTPClient) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, "", errs.New(errs.ErrorTypeParsing, rawURL, "malformed url")
	}

	if c.robots != nil && !c.robots.Allowed(ctx, u) {
		return nil, "", errs.New(errs.ErrorTypeForbidden, rawURL, "disallowed by robots.txt")
	}

	if err := c.opts.Limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrorTypeParsing, rawURL, err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Referer != "" {
		req.Header.Set("Referer", c.cfg.Referer)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", classify(ctx, rawURL, err)
	}
	defer resp.Body.Close()

	logger.LogRequest(c.opts.Logger, rawURL, resp.StatusCode, time.Since(start))

	if typed := errs.FromStatus(rawURL, resp.StatusCode); typed != nil {
		return nil, "", typed
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", classify(ctx, rawURL, fmt.Errorf("read body: %w", err))
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if typed, ok := err.(*errs.Error); ok {
		return typed.Code
	}
	return 0
}
