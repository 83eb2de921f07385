package fetch

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"catalogscraper/pkg/logger"

	"github.com/temoto/robotstxt"
)

// RobotsPolicy caches robots.txt groups per host. A robots.txt that cannot
// be fetched or parsed allows everything. Failed requests and server errors
// are not cached, so the next visit to the host asks again.
type RobotsPolicy struct {
	client    *http.Client
	userAgent string
	log       logger.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

// NewRobotsPolicy creates an empty policy cache
func NewRobotsPolicy(client *http.Client, userAgent string, log logger.Logger) *RobotsPolicy {
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		log:       log,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether the user agent may visit u
func (p *RobotsPolicy) Allowed(ctx context.Context, u *url.URL) bool {
	host := u.Scheme + "://" + u.Host

	p.mu.Lock()
	group, ok := p.groups[host]
	p.mu.Unlock()

	if !ok {
		var cacheable bool
		group, cacheable = p.load(ctx, host)
		if cacheable {
			p.mu.Lock()
			p.groups[host] = group
			p.mu.Unlock()
		}
	}

	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

func (p *RobotsPolicy) load(ctx context.Context, host string) (*robotstxt.Group, bool) {
	robotsURL := host + "/robots.txt"
	log := p.log.WithField("url", robotsURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, true
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("robots.txt unavailable, allowing this request")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		log.WithField("status_code", resp.StatusCode).Warn("robots.txt unavailable, allowing this request")
		return nil, false
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.WithError(err).Warn("robots.txt unparsable, allowing all")
		return nil, true
	}

	log.Debug("robots.txt loaded")
	return data.FindGroup(p.userAgent), true
}
