// Package fetch implements page.Navigator and page.Fetcher over net/http
// (the default) or gocolly/colly. Both engines share the rate limiter, the
// retry policy and the typed errors of pkg/errors.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"catalogscraper/pkg/config"
	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/page"
	"catalogscraper/pkg/ratelimit"
	"catalogscraper/pkg/retry"

	"golang.org/x/net/html/charset"
)

// Client is what the scraper needs from a fetch engine
type Client interface {
	page.Navigator
	page.Fetcher
}

// Options carries the collaborators shared by every engine
type Options struct {
	Limiter ratelimit.Limiter
	Retry   *retry.Config
	Logger  logger.Logger
}

func (o *Options) defaults() {
	if o.Limiter == nil {
		o.Limiter = ratelimit.Unlimited{}
	}
	if o.Retry == nil {
		o.Retry = &retry.Config{MaxAttempts: 1}
	}
	if o.Logger == nil {
		o.Logger = logger.NewNopLogger()
	}
}

// New builds the engine named by cfg.Engine
func New(cfg config.FetcherConfig, opts Options) (Client, error) {
	switch strings.ToLower(cfg.Engine) {
	case "http", "":
		return NewHTTPClient(cfg, opts), nil
	case "colly":
		return NewCollyClient(cfg, opts), nil
	default:
		return nil, errs.New(errs.ErrorTypeConfig, "", fmt.Sprintf("unknown fetcher engine %q", cfg.Engine))
	}
}

var blockMarkers = []string{"captcha", "security check", "access denied"}

// detectBlock flags bot-check interstitials served with a 200 by their title
func detectBlock(rawURL string, p page.Page) error {
	for _, title := range p.Query("title") {
		lower := strings.ToLower(title.Text())
		for _, marker := range blockMarkers {
			if strings.Contains(lower, marker) {
				return errs.New(errs.ErrorTypeForbidden, rawURL, "blocked by "+marker+" page")
			}
		}
	}
	return nil
}

// parsePage decodes body to UTF-8 according to contentType and parses it
func parsePage(rawURL string, body []byte, contentType string) (page.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, rawURL, err)
	}

	var r io.Reader = bytes.NewReader(body)
	if utf8Reader, err := charset.NewReader(r, contentType); err == nil {
		r = utf8Reader
	}

	doc, err := page.NewDocument(u, r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, rawURL, err)
	}
	if err := detectBlock(rawURL, doc); err != nil {
		doc.Close()
		return nil, err
	}
	return doc, nil
}

// classify turns a transport failure into a typed error, leaving context
// cancellation untouched so callers can tell aborts from faults
func classify(ctx context.Context, rawURL string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := err.(*errs.Error); ok {
		return err
	}
	return errs.Wrap(errs.ErrorTypeNetwork, rawURL, err)
}
