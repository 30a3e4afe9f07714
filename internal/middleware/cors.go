package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// EdgePrefix marks routes that carry their own CORS policy.
const EdgePrefix = "/edge/"

// CORSMiddleware sets the site CORS headers for every route outside
// EdgePrefix and answers preflight requests.
func CORSMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, EdgePrefix) {
			c.Next()
			return
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight request
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// EdgeCORSMiddleware echoes the caller's Origin, answers preflight with 204
// and rejects anything but POST with 405.
func EdgeCORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET,HEAD,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type,x-proxy-key,Authorization")
		h.Set("Access-Control-Max-Age", "86400")

		switch c.Request.Method {
		case http.MethodOptions:
			c.AbortWithStatus(http.StatusNoContent)
		case http.MethodPost:
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		}
	}
}
