package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Thumbnails returns the absolute image sources of an image-search results page.
func Thumbnails(doc *goquery.Document) []string {
	out := []string{}
	doc.FindMatcher(thumbnailMatcher).Each(func(_ int, img *goquery.Selection) {
		if src := strings.TrimSpace(img.AttrOr("src", "")); isAbsoluteURL(src) {
			out = append(out, src)
		}
	})
	return out
}
