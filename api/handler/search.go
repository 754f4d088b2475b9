package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prixscout/models"
)

// Search returns a handler for GET /search/*query?isCompare=true|false.
//
// Results come from the cache when fresh; the X-Cache header says which.
// A failed browser session is an empty array, not an error.
func Search(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := catchAll(c, "query")
		if strings.TrimSpace(query) == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgQueryRequired})
			return
		}
		compare := c.Query("isCompare") == "true"

		items, status, err := svc.SearchWithBrowser(c.Request.Context(), query, compare)
		if err != nil {
			code := models.CodeOf(err)
			if code == models.ErrCodeInvalidInput {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgQueryRequired})
				return
			}
			logger(c).Error("search failed", "code", code, "error", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgSearchInternal})
			return
		}

		c.Header("X-Cache", status)
		c.JSON(http.StatusOK, items)
	}
}
