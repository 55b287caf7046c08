package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects request bodies that are not application/json.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || mt != "application/json" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Content-Type must be application/json",
				"code":  "INVALID_REQUEST",
			})
			return
		}
		c.Next()
	}
}
