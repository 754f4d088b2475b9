package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/prixscout/models"
)

// Detail reads a product page. Missing scalars become models.NotAvailable and
// missing collections become empty, never nil.
func Detail(doc *goquery.Document) *models.ProductDetail {
	name := text(doc.Find(detailNameSelector))

	return &models.ProductDetail{
		ID:               name,
		Name:             name,
		Price:            text(doc.Find(detailPriceSelector)),
		Features:         features(doc),
		Specifications:   specifications(doc),
		CarouselImages:   carouselImages(doc),
		Listings:         storeListings(doc),
		DetailedListings: detailedListings(doc),
	}
}

func features(doc *goquery.Document) []string {
	out := []string{}
	doc.Find(featureSelector).Each(func(_ int, li *goquery.Selection) {
		out = append(out, strings.TrimSpace(li.Text()))
	})
	return out
}

// specifications pairs each heading with the ul.group that immediately
// follows it. A heading without such a sibling maps to an empty list.
func specifications(doc *goquery.Document) map[string][]string {
	out := map[string][]string{}
	doc.FindMatcher(specHeadingMatcher).Each(func(_ int, heading *goquery.Selection) {
		label := strings.TrimSpace(heading.Text())
		if label == "" {
			label = "Unknown"
		}
		specs := []string{}
		heading.NextFiltered(specGroupSelector).FindMatcher(specLineMatcher).Each(func(_ int, span *goquery.Selection) {
			specs = append(specs, strings.TrimSpace(span.Text()))
		})
		out[label] = specs
	})
	return out
}

// carouselImages keeps absolute http(s) sources only, in document order.
func carouselImages(doc *goquery.Document) []string {
	out := []string{}
	doc.FindMatcher(carouselImageMatcher).Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if isAbsoluteURL(src) {
			out = append(out, src)
		}
	})
	return out
}

func storeListings(doc *goquery.Document) []models.StoreListing {
	out := []models.StoreListing{}
	doc.Find(storeStripSelector).Each(func(_ int, li *goquery.Selection) {
		out = append(out, models.StoreListing{
			Name:  text(li.Find("a div.name span")),
			URL:   attr(li.Find("a"), "href"),
			Image: attr(li.Find("a div.name img"), "src"),
			Price: text(li.Find("a span.price")),
		})
	})
	return out
}

func detailedListings(doc *goquery.Document) []models.DetailedListing {
	out := []models.DetailedListing{}
	doc.Find(storeComparisonSelector).Each(func(_ int, box *goquery.Selection) {
		shipping := []string{}
		box.Find("div.shipping div").Each(func(_ int, d *goquery.Selection) {
			if t := strings.TrimSpace(d.Text()); t != "" {
				shipping = append(shipping, t)
			}
		})
		out = append(out, models.DetailedListing{
			StoreURL:   attr(box.Find("a.logo"), "href"),
			StoreImage: attr(box.Find("a.logo img"), "src"),
			Price:      text(box.Find("div.price")),
			Shipping:   shipping,
		})
	})
	return out
}
