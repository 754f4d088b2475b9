package models

// NotAvailable is the placeholder for any field the extractor could not read.
const NotAvailable = "N/A"

// SearchResultItem is one product card from a search results page.
type SearchResultItem struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	ImageURL   string `json:"imageUrl"`
	DetailLink string `json:"detailLink"`
}

// ProductDetail is the structured content of a single product page.
type ProductDetail struct {
	// ID is derived from the product name.
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`

	Features []string `json:"features"`

	// Specifications maps a category heading to its spec lines, in page order.
	Specifications map[string][]string `json:"specifications"`

	// CarouselImages holds absolute image URLs only.
	CarouselImages []string `json:"carouselImages"`

	Listings         []StoreListing    `json:"listings"`
	DetailedListings []DetailedListing `json:"detailedListings"`
}

// StoreListing is a compact store offer from the price strip.
type StoreListing struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Image string `json:"image"`
	Price string `json:"price"`
}

// DetailedListing is a store offer from the price comparison table.
type DetailedListing struct {
	StoreURL   string   `json:"storeUrl"`
	StoreImage string   `json:"storeImage"`
	Price      string   `json:"price"`
	Shipping   []string `json:"shipping"`
}
