package fetch

import (
	"context"
	"errors"
	"net/http"

	"catalogscraper/pkg/config"
	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/page"
	"catalogscraper/pkg/retry"

	"github.com/gocolly/colly"
)

// CollyClient fetches through a gocolly collector. Each call runs on a clone
// of the base collector so concurrent workers never share callbacks.
type CollyClient struct {
	base *colly.Collector
	cfg  config.FetcherConfig
	opts Options
}

// NewCollyClient creates the colly engine. robots.txt handling is delegated
// to colly itself.
func NewCollyClient(cfg config.FetcherConfig, opts Options) *CollyClient {
	opts.defaults()

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.MaxBodySize = 0
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}

	return &CollyClient{base: c, cfg: cfg, opts: opts}
}

type collyResult struct {
	status      int
	body        []byte
	contentType string
}

func (c *CollyClient) visit(ctx context.Context, rawURL string) (*collyResult, error) {
	if err := c.opts.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	collector := c.base.Clone()
	res := &collyResult{}
	var visitErr error

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		if c.cfg.Referer != "" {
			r.Headers.Set("Referer", c.cfg.Referer)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		res.status = r.StatusCode
		res.body = r.Body
		if r.Headers != nil {
			res.contentType = r.Headers.Get("Content-Type")
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			res.status = r.StatusCode
		}
		visitErr = err
	})

	err := collector.Visit(rawURL)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err == nil {
		err = visitErr
	}

	switch {
	case errors.Is(err, colly.ErrRobotsTxtBlocked):
		return nil, errs.New(errs.ErrorTypeForbidden, rawURL, "disallowed by robots.txt")
	case res.status != 0 && res.status != http.StatusOK:
		return nil, errs.FromStatus(rawURL, res.status)
	case err != nil:
		return nil, classify(ctx, rawURL, err)
	case res.status == 0:
		return nil, errs.New(errs.ErrorTypeNetwork, rawURL, "no response")
	}
	return res, nil
}

// Navigate loads and parses the page at rawURL
func (c *CollyClient) Navigate(ctx context.Context, rawURL string) (page.Page, error) {
	return retry.DoWithResult(ctx, c.opts.Retry, func(ctx context.Context) (page.Page, error) {
		res, err := c.visit(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return parsePage(rawURL, res.body, res.contentType)
	})
}

// Fetch downloads rawURL
func (c *CollyClient) Fetch(ctx context.Context, rawURL string) ([]byte, int, error) {
	var status int
	body, err := retry.DoWithResult(ctx, c.opts.Retry, func(ctx context.Context) ([]byte, error) {
		res, err := c.visit(ctx, rawURL)
		if err != nil {
			status = statusOf(err)
			return nil, err
		}
		status = res.status
		return res.body, nil
	})
	return body, status, err
}
