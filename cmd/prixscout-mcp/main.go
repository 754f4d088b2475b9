package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// product mirrors the API's search result item.
type product struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	ImageURL   string `json:"imageUrl"`
	DetailLink string `json:"detailLink"`
}

// productDetail mirrors the API's product detail response.
type productDetail struct {
	Name           string              `json:"name"`
	Price          string              `json:"price"`
	Features       []string            `json:"features"`
	Specifications map[string][]string `json:"specifications"`
	CarouselImages []string            `json:"carouselImages"`
	Listings       []struct {
		Name  string `json:"name"`
		URL   string `json:"url"`
		Price string `json:"price"`
	} `json:"listings"`
}

// apiError mirrors the API's error body.
type apiError struct {
	Error string `json:"error"`
}

type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func main() {
	apiURL := os.Getenv("PRIXSCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3001"
	}
	client := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("PRIXSCOUT_API_KEY"),
		http:    &http.Client{Timeout: 90 * time.Second},
	}

	s := server.NewMCPServer(
		"prixscout",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Search the price comparison site and return up to 10 products from the static results page, with name, price, image and detail link."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Product search terms, e.g. 'pixel 9' or 'gaming laptop'"),
		),
	)
	s.AddTool(searchTool, handleSearchProducts(client))

	detailTool := mcp.NewTool("product_details",
		mcp.WithDescription("Fetch one product page: price, features, grouped specifications, images and store offers."),
		mcp.WithString("detail_link",
			mcp.Required(),
			mcp.Description("The detailLink returned by search_products or browser_search, e.g. '/mobiles/google-pixel-9-ppd1234'"),
		),
	)
	s.AddTool(detailTool, handleProductDetails(client))

	browserTool := mcp.NewTool("browser_search",
		mcp.WithDescription("Search through a headless browser and return up to 40 products from the rendered page. Slower than search_products; results are cached for an hour."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Product search terms"),
		),
		mcp.WithBoolean("compare",
			mcp.Description("Compare mode; cached separately from regular searches"),
		),
	)
	s.AddTool(browserTool, handleBrowserSearch(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// get calls the API and decodes a 200 body into out. Any other status, or a
// 200 carrying an error object, is returned as an error.
func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var e apiError
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, e.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned HTTP %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func handleSearchProducts(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		var items []product
		if err := c.get(ctx, "/scrape/"+url.PathEscape(query), &items); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatProducts(items)), nil
	}
}

func handleBrowserSearch(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		compare := request.GetBool("compare", false)

		var items []product
		path := "/search/" + url.PathEscape(query) + "?isCompare=" + strconv.FormatBool(compare)
		if err := c.get(ctx, path, &items); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatProducts(items)), nil
	}
}

func handleProductDetails(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		link, err := request.RequireString("detail_link")
		if err != nil {
			return mcp.NewToolResultError("detail_link is required"), nil
		}

		catID, id, ok := splitDetailLink(link)
		if !ok {
			return mcp.NewToolResultError("detail_link must look like '/<category>/<product>'"), nil
		}

		var d productDetail
		if err := c.get(ctx, "/details/"+url.PathEscape(catID)+"/"+url.PathEscape(id), &d); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatDetail(d)), nil
	}
}

// splitDetailLink turns a detail link, relative or absolute, into its
// category and product segments.
func splitDetailLink(link string) (catID, id string, ok bool) {
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		link = u.Path
	}
	catID, id, ok = strings.Cut(strings.Trim(link, "/"), "/")
	return catID, id, ok && catID != "" && id != ""
}

func formatProducts(items []product) string {
	if len(items) == 0 {
		return "No products found."
	}
	var b strings.Builder
	for i, p := range items {
		fmt.Fprintf(&b, "%d. %s | %s | %s\n", i+1, p.Name, p.Price, p.DetailLink)
	}
	return b.String()
}

func formatDetail(d productDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nPrice: %s\n", d.Name, d.Price)

	if len(d.Features) > 0 {
		b.WriteString("\nFeatures:\n")
		for _, f := range d.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(d.Specifications) > 0 {
		b.WriteString("\nSpecifications:\n")
		for _, heading := range slices.Sorted(maps.Keys(d.Specifications)) {
			fmt.Fprintf(&b, "%s: %s\n", heading, strings.Join(d.Specifications[heading], "; "))
		}
	}
	if len(d.Listings) > 0 {
		b.WriteString("\nStores:\n")
		for _, l := range d.Listings {
			fmt.Fprintf(&b, "- %s %s %s\n", l.Name, l.Price, l.URL)
		}
	}
	return b.String()
}
