package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prixscout/models"
)

// Scrape returns a handler for GET /scrape/*query.
//
// Zero matching cards is 200 with an empty array. An upstream failure is
// also 200, with an error object in place of the array.
func Scrape(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := catchAll(c, "query")
		if strings.TrimSpace(query) == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgQueryRequired})
			return
		}

		items, err := svc.ListByQuery(c.Request.Context(), query)
		if err != nil {
			code := models.CodeOf(err)
			switch {
			case code == models.ErrCodeInvalidInput:
				c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgQueryRequired})
			case upstreamFailure(code):
				logger(c).Warn("scrape failed", "code", code, "error", err)
				c.JSON(http.StatusOK, models.ErrorResponse{Error: msgScrapeFailed})
			default:
				logger(c).Error("scrape failed", "code", code, "error", err)
				c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgListInternal})
			}
			return
		}

		c.JSON(http.StatusOK, items)
	}
}
