package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prixscout/models"
)

// Details returns a handler for GET /details/*path, where path is
// "<catId>/<id>". Either segment blank is 400; a fetch or parse failure
// is 404.
func Details(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		catID, id, _ := strings.Cut(catchAll(c, "path"), "/")
		if strings.TrimSpace(catID) == "" || strings.TrimSpace(id) == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgParamsRequired})
			return
		}

		detail, err := svc.DetailByKey(c.Request.Context(), catID, id)
		if err != nil {
			code := models.CodeOf(err)
			switch {
			case code == models.ErrCodeInvalidInput:
				c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgParamsRequired})
			case upstreamFailure(code):
				logger(c).Warn("detail failed", "code", code, "error", err)
				c.JSON(http.StatusNotFound, models.ErrorResponse{Error: msgDetailFailed})
			default:
				logger(c).Error("detail failed", "code", code, "error", err)
				c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgDetailInternal})
			}
			return
		}

		c.JSON(http.StatusOK, detail)
	}
}
