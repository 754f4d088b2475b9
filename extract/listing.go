package extract

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/prixscout/models"
)

// Listing reads at most limit product cards from a search results page.
// Each field is resolved independently, so a card with a missing price still
// yields its name, image and link. The result is never nil.
func Listing(doc *goquery.Document, limit int) []models.SearchResultItem {
	items := make([]models.SearchResultItem, 0, max(limit, 0))
	if limit <= 0 {
		return items
	}

	doc.FindMatcher(cardMatcher).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		items = append(items, models.SearchResultItem{
			Name:       text(card.FindMatcher(cardNameMatcher)),
			Price:      text(card.FindMatcher(cardPriceMatcher)),
			ImageURL:   attr(card.FindMatcher(cardImageMatcher), "src"),
			DetailLink: attr(card.FindMatcher(cardLinkMatcher), "href"),
		})
		return len(items) < limit
	})

	return items
}
