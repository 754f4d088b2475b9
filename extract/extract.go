// Package extract turns upstream HTML into listing and product-detail
// records. Every function here is a pure transformation of a parsed document
// and never performs I/O.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/prixscout/models"
)

// Parse builds a queryable document from raw HTML. The html5 parser accepts
// almost anything, so an error here means the input could not be read at all.
func Parse(rawHTML []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "failed to parse HTML", err)
	}
	return doc, nil
}

// text returns the trimmed text of the first node in s, or models.NotAvailable.
func text(s *goquery.Selection) string {
	if s.Length() == 0 {
		return models.NotAvailable
	}
	if t := strings.TrimSpace(s.First().Text()); t != "" {
		return t
	}
	return models.NotAvailable
}

// attr returns the trimmed attribute of the first node in s, or models.NotAvailable.
func attr(s *goquery.Selection, name string) string {
	if v, ok := s.First().Attr(name); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return models.NotAvailable
}

// isAbsoluteURL reports whether raw is an http(s) URL with a host.
func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
