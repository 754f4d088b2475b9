package extract

import "github.com/andybalholm/cascadia"

// Upstream markup signatures. These track the retail site's class names and
// are expected to drift; a selector that stops matching degrades its field to
// models.NotAvailable or an empty list.
const (
	CardSelector = "div.sm-product.has-tag.has-features.has-actions"

	cardNameSelector  = "a.name.clamp-2 h2"
	cardLinkSelector  = "a.name.clamp-2"
	cardPriceSelector = "span.price"
	cardImageSelector = "img.sm-img"

	detailNameSelector      = ".pg-prd-head h1"
	detailPriceSelector     = ".liner strong"
	featureSelector         = "ul.sm-feat li"
	specHeadingSelector     = ".sm-quick-specs .heading"
	specGroupSelector       = "ul.group"
	specLineSelector        = "li span"
	carouselImageSelector   = "div.sm-swiper img.sm-img"
	storeStripSelector      = "ul.sm-store-strip li"
	storeComparisonSelector = "div.sm-box-item.sm-pc-item"

	thumbnailSelector = "div.s-image-fixed-height img.s-image"
)

var (
	cardMatcher          = cascadia.MustCompile(CardSelector)
	cardNameMatcher      = cascadia.MustCompile(cardNameSelector)
	cardLinkMatcher      = cascadia.MustCompile(cardLinkSelector)
	cardPriceMatcher     = cascadia.MustCompile(cardPriceSelector)
	cardImageMatcher     = cascadia.MustCompile(cardImageSelector)
	specHeadingMatcher   = cascadia.MustCompile(specHeadingSelector)
	specLineMatcher      = cascadia.MustCompile(specLineSelector)
	carouselImageMatcher = cascadia.MustCompile(carouselImageSelector)
	thumbnailMatcher     = cascadia.MustCompile(thumbnailSelector)
)
