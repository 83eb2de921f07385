// Package page defines the page-fetching capability the crawler depends on:
// navigate to a URL, query the loaded page by selector, and fetch raw bytes.
package page

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is a queried node
type Element interface {
	Attr(name string) (string, bool)
	Text() string
}

// Page is a loaded document. A Page is owned by a single goroutine.
type Page interface {
	URL() *url.URL
	Query(selector string) []Element
	Close()
}

// Navigator loads pages
type Navigator interface {
	Navigate(ctx context.Context, rawURL string) (Page, error)
}

// Fetcher downloads raw resources. A non-200 status is reported as a typed error.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, int, error)
}

// Document is a Page backed by a parsed goquery document
type Document struct {
	url *url.URL
	doc *goquery.Document
}

// NewDocument parses HTML from r as the page at pageURL
func NewDocument(pageURL *url.URL, r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Document{url: pageURL, doc: doc}, nil
}

// ParseHTML is NewDocument for in-memory markup
func ParseHTML(rawURL, html string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return NewDocument(u, strings.NewReader(html))
}

func (d *Document) URL() *url.URL { return d.url }

func (d *Document) Query(selector string) []Element {
	sel := d.doc.Find(selector)
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, selection{s})
	})
	return out
}

// Close releases the parsed tree
func (d *Document) Close() { d.doc = nil }

type selection struct {
	s *goquery.Selection
}

func (e selection) Attr(name string) (string, bool) { return e.s.Attr(name) }

func (e selection) Text() string { return strings.TrimSpace(e.s.Text()) }
