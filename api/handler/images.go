package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prixscout/models"
)

// Images returns a handler for GET /images/*query. Thumbnails are
// decorative, so any failure after validation is 200 with an empty array.
func Images(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := catchAll(c, "query")
		if strings.TrimSpace(query) == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgQueryRequired})
			return
		}

		urls, err := svc.ImagesByQuery(c.Request.Context(), query)
		if err != nil {
			if models.CodeOf(err) == models.ErrCodeInvalidInput {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgQueryRequired})
				return
			}
			logger(c).Warn("thumbnail lookup failed", "error", err)
			urls = []string{}
		}

		c.JSON(http.StatusOK, urls)
	}
}
