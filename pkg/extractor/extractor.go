// Package extractor turns a loaded page into a deduplicated ResultSet of
// product links or downloadable images. It performs no network I/O.
package extractor

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"
	"catalogscraper/pkg/page"
)

// DefaultLinkCap bounds the links taken from one category page
const DefaultLinkCap = 200

var (
	imageAltPattern = regexp.MustCompile(`(?i)Image\s+\d+`)
	ultPattern      = regexp.MustCompile(`(?i)ult\d+\.(jpg|jpeg|png|webp)$`)
	ePattern        = regexp.MustCompile(`(?i)e\d+\.(jpg|jpeg|png|webp)$`)
	imageNumPattern = regexp.MustCompile(`(?i)\s*Image\s*\d+`)
	separators      = regexp.MustCompile(`[\s\-/\\]+`)
	underscores     = regexp.MustCompile(`_+$`)
)

// Options configures extraction
type Options struct {
	// LinkPrefix is the locale path every product link must start with
	LinkPrefix string
	// ProductMarker must appear in a product link
	ProductMarker string
	// Brand is stripped from alt text ("... by <Brand>")
	Brand string
}

// Extractor applies the link and image rules
type Extractor struct {
	opts    Options
	byBrand *regexp.Regexp
	log     logger.Logger
}

// New creates an Extractor
func New(opts Options, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	e := &Extractor{opts: opts, log: log}
	if opts.Brand != "" {
		e.byBrand = regexp.MustCompile(`(?i)\s*by\s+` + regexp.QuoteMeta(opts.Brand))
	}
	return e
}

// Extract dispatches on kind. cap only applies to links; values below 1 use DefaultLinkCap.
func (e *Extractor) Extract(p page.Page, kind models.Kind, cap int) (*models.ResultSet, error) {
	switch kind {
	case models.KindLink:
		return e.Links(p, cap), nil
	case models.KindImage:
		return e.Images(p), nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

// Links collects product URLs from anchors, query and fragment stripped,
// until cap records are held.
func (e *Extractor) Links(p page.Page, cap int) *models.ResultSet {
	if cap < 1 {
		cap = DefaultLinkCap
	}
	rs := models.NewResultSet()
	base := p.URL()

	for _, a := range p.Query("a[href]") {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		u, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			e.log.WithField("href", href).Debug("Skipping malformed href")
			continue
		}
		u.RawQuery = ""
		u.ForceQuery = false
		u.Fragment = ""
		u.RawFragment = ""
		link := u.String()

		if !e.isProductLink(link) {
			continue
		}
		rs.Add(models.Record{Kind: models.KindLink, URL: link})

		if rs.Len() >= cap {
			e.log.WithFields(map[string]interface{}{
				"url": base.String(),
				"cap": cap,
			}).Info("Link cap reached")
			break
		}
	}
	return rs
}

func (e *Extractor) isProductLink(link string) bool {
	if e.opts.LinkPrefix != "" && !strings.HasPrefix(link, e.opts.LinkPrefix) {
		return false
	}
	return e.opts.ProductMarker == "" || strings.Contains(link, e.opts.ProductMarker)
}

type candidate struct {
	src      string // absolute, query kept
	basename string // from the query-stripped path
	alt      string
	clean    string
}

// Images applies the alt-text rule, then the ult fallback when the first
// rule found fewer than two images.
func (e *Extractor) Images(p page.Page) *models.ResultSet {
	var candidates []candidate
	for _, img := range p.Query("img") {
		if c, ok := resolveCandidate(p.URL(), img); ok {
			candidates = append(candidates, c)
		}
	}

	rs := models.NewResultSet()
	for _, c := range candidates {
		if !imageAltPattern.MatchString(c.alt) {
			continue
		}
		if !ultPattern.MatchString(c.clean) && !ePattern.MatchString(c.clean) {
			continue
		}
		rs.Add(models.Record{
			Kind:     models.KindImage,
			URL:      c.src,
			Filename: e.normalizeAlt(c.alt) + c.basename,
		})
	}

	if rs.Len() < 2 {
		primary := rs.Len()
		for _, c := range candidates {
			if ultPattern.MatchString(c.clean) {
				rs.Add(models.Record{Kind: models.KindImage, URL: c.src, Filename: c.basename})
			}
		}
		e.log.WithFields(map[string]interface{}{
			"url":      p.URL().String(),
			"primary":  primary,
			"fallback": rs.Len() - primary,
		}).Debug("Image fallback rule applied")
	}
	return rs
}

// resolveCandidate picks src, then data-src, then the first srcset entry
func resolveCandidate(base *url.URL, img page.Element) (candidate, bool) {
	var raw string
	for _, attr := range []string{"src", "data-src", "srcset"} {
		v, ok := img.Attr(attr)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if attr == "srcset" {
			v = strings.SplitN(v, ",", 2)[0]
		}
		fields := strings.Fields(v)
		if len(fields) == 0 {
			continue
		}
		raw = fields[0]
		break
	}
	if raw == "" {
		return candidate{}, false
	}

	u, err := base.Parse(raw)
	if err != nil {
		return candidate{}, false
	}
	clean := *u
	clean.RawQuery = ""
	clean.ForceQuery = false
	clean.Fragment = ""

	name := path.Base(clean.Path)
	if name == "." || name == "/" || name == "" {
		return candidate{}, false
	}

	alt, _ := img.Attr("alt")
	return candidate{src: u.String(), basename: name, alt: alt, clean: clean.String()}, true
}

// normalizeAlt turns "Flared Dress - Image 2 by Zara" into "Flared_Dress_"
func (e *Extractor) normalizeAlt(alt string) string {
	s := alt
	if e.byBrand != nil {
		s = e.byBrand.ReplaceAllString(s, "")
	}
	s = imageNumPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = separators.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "")
	return s + "_"
}
