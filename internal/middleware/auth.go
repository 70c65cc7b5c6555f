package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/epeers/metalprices/internal/models"
	"github.com/gin-gonic/gin"
)

// AdminTokenHeader carries the admin token when no bearer token is sent
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken rejects requests that do not present token, either as a
// bearer token or in the X-Admin-Token header. An empty token rejects everything.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(AdminTokenHeader)
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			presented = strings.TrimPrefix(auth, "Bearer ")
		}

		if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "admin token required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
