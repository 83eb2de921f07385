package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"catalogscraper/pkg/config"
	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcherConfig(engine string) config.FetcherConfig {
	return config.FetcherConfig{
		Engine:    engine,
		UserAgent: "catalogscraper-test",
		Referer:   "https://www.google.com/",
		Timeout:   5 * time.Second,
	}
}

func fastRetry(attempts int) *retry.Config {
	return &retry.Config{
		MaxAttempts: attempts,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     retry.DefaultRetryIf,
	}
}

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/d", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "catalogscraper-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `<html><head><title>Dresses</title></head><body><a href="/p0a">A</a></body></html>`)
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte("<html><body><a href=\"/p\">Caf\xe9</a></body></html>"))
	})
	mux.HandleFunc("/blocked", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Security Check</title></head><body></body></html>`)
	})
	mux.HandleFunc("/asset.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xff, 0xd8, 0xff})
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html></html>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPNavigate(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewHTTPClient(testFetcherConfig("http"), Options{})

	p, err := c.Navigate(context.Background(), srv.URL+"/d")
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "/d", p.URL().Path)
	require.Len(t, p.Query("a[href]"), 1)
}

func TestHTTPNavigateDecodesCharset(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewHTTPClient(testFetcherConfig("http"), Options{})

	p, err := c.Navigate(context.Background(), srv.URL+"/latin1")
	require.NoError(t, err)

	anchors := p.Query("a")
	require.Len(t, anchors, 1)
	assert.Equal(t, "Café", anchors[0].Text())
}

func TestHTTPNavigateNotFound(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewHTTPClient(testFetcherConfig("http"), Options{Retry: fastRetry(3)})

	_, err := c.Navigate(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
}

func TestHTTPNavigateBlockedPage(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewHTTPClient(testFetcherConfig("http"), Options{})

	_, err := c.Navigate(context.Background(), srv.URL+"/blocked")
	assert.True(t, errs.Is(err, errs.ErrorTypeForbidden))
}

func TestHTTPNavigateRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	c := NewHTTPClient(testFetcherConfig("http"), Options{Retry: fastRetry(3)})
	_, err := c.Navigate(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPRespectsRobots(t *testing.T) {
	srv := newCatalogServer(t)
	cfg := testFetcherConfig("http")
	cfg.RespectRobots = true
	c := NewHTTPClient(cfg, Options{})

	_, err := c.Navigate(context.Background(), srv.URL+"/private")
	assert.True(t, errs.Is(err, errs.ErrorTypeForbidden))

	_, err = c.Navigate(context.Background(), srv.URL+"/d")
	assert.NoError(t, err)
}

func TestHTTPFetch(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewHTTPClient(testFetcherConfig("http"), Options{})

	body, status, err := c.Fetch(context.Background(), srv.URL+"/asset.jpg")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, body)

	_, status, err = c.Fetch(context.Background(), srv.URL+"/nope.jpg")
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHTTPMalformedURL(t *testing.T) {
	c := NewHTTPClient(testFetcherConfig("http"), Options{})
	_, err := c.Navigate(context.Background(), "not a url")
	assert.True(t, errs.Is(err, errs.ErrorTypeParsing))
}

func TestHTTPCancelledContext(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewHTTPClient(testFetcherConfig("http"), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Navigate(ctx, srv.URL+"/d")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollyNavigateAndFetch(t *testing.T) {
	srv := newCatalogServer(t)
	c := NewCollyClient(testFetcherConfig("colly"), Options{})

	p, err := c.Navigate(context.Background(), srv.URL+"/d")
	require.NoError(t, err)
	assert.Len(t, p.Query("a[href]"), 1)

	// revisiting the same URL is allowed
	_, err = c.Navigate(context.Background(), srv.URL+"/d")
	require.NoError(t, err)

	body, status, err := c.Fetch(context.Background(), srv.URL+"/asset.jpg")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body, 3)

	_, err = c.Navigate(context.Background(), srv.URL+"/missing")
	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
}

func TestNewSelectsEngine(t *testing.T) {
	c, err := New(testFetcherConfig("http"), Options{})
	require.NoError(t, err)
	assert.IsType(t, &HTTPClient{}, c)

	c, err = New(testFetcherConfig("colly"), Options{})
	require.NoError(t, err)
	assert.IsType(t, &CollyClient{}, c)

	_, err = New(testFetcherConfig("chromium"), Options{})
	assert.True(t, errs.Is(err, errs.ErrorTypeConfig))
}

func newRobotsServer(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&hits, 1))
		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRobotsPolicyCaching(t *testing.T) {
	tests := []struct {
		name        string
		statuses    []int
		wantFirst   bool
		wantSecond  bool
		wantFetches int32
	}{
		{"rules cached", []int{http.StatusOK}, false, false, 1},
		{"missing robots cached", []int{http.StatusNotFound}, true, true, 1},
		{"server error retried", []int{http.StatusServiceUnavailable, http.StatusOK}, true, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := newRobotsServer(t, tt.statuses...)
			p := NewRobotsPolicy(srv.Client(), "catalogscraper-test", logger.NewNopLogger())
			u, err := url.Parse(srv.URL + "/private")
			require.NoError(t, err)

			assert.Equal(t, tt.wantFirst, p.Allowed(context.Background(), u))
			assert.Equal(t, tt.wantSecond, p.Allowed(context.Background(), u))
			assert.Equal(t, tt.wantFetches, atomic.LoadInt32(hits))
		})
	}
}

func TestRobotsPolicyCancelledFetchNotCached(t *testing.T) {
	srv, hits := newRobotsServer(t, http.StatusOK)
	p := NewRobotsPolicy(srv.Client(), "catalogscraper-test", logger.NewNopLogger())
	u, err := url.Parse(srv.URL + "/private")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, p.Allowed(ctx, u))
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))

	assert.False(t, p.Allowed(context.Background(), u))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}
