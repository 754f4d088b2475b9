package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDetailLink(t *testing.T) {
	tests := []struct {
		link    string
		wantCat string
		wantID  string
		wantOK  bool
	}{
		{"/mobiles/google-pixel-9-ppd1234", "mobiles", "google-pixel-9-ppd1234", true},
		{"mobiles/google-pixel-9", "mobiles", "google-pixel-9", true},
		{"https://www.smartprix.com/laptops/hp-15/", "laptops", "hp-15", true},
		{"/mobiles/", "mobiles", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			cat, id, ok := splitDetailLink(tt.link)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantCat, cat)
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}

func TestAPIClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/scrape/pixel 9":
			_, _ = w.Write([]byte(`[{"name":"Pixel 9","price":"₹79,999","imageUrl":"N/A","detailLink":"/mobiles/pixel-9"}]`))
		case "/scrape/broken":
			_, _ = w.Write([]byte(`{"error":"Failed to scrape products"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Query parameter is required"}`))
		}
	}))
	defer srv.Close()

	c := &apiClient{baseURL: srv.URL, apiKey: "k", http: srv.Client()}

	var items []product
	require.NoError(t, c.get(context.Background(), "/scrape/pixel%209", &items))
	require.Len(t, items, 1)
	assert.Contains(t, formatProducts(items), "1. Pixel 9 | ₹79,999 | /mobiles/pixel-9")

	err := c.get(context.Background(), "/scrape/broken", &items)
	assert.ErrorContains(t, err, "Failed to scrape products")

	err = c.get(context.Background(), "/scrape/", &items)
	assert.ErrorContains(t, err, "HTTP 400")

	assert.Equal(t, "No products found.", formatProducts(nil))
}
