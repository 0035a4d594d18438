package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/blessingsjourney/payhook/internal/config"
)

// CORSMiddleware reflects origins on the allow-list and falls back to a
// wildcard for everything else, so PayHip's server-to-server webhook posts
// are never rejected.
func CORSMiddleware(edge *config.EdgePolicyHolder) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy := edge.Get()
		origin := c.GetHeader("Origin")

		allowed := "*"
		for _, candidate := range policy.AllowedOrigins {
			if candidate == origin {
				allowed = origin
				break
			}
		}

		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		if allowed != "*" {
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// CacheControlMiddleware stamps Cache-Control based on the request path's
// extension. Lifetimes come from the hot-reloadable edge policy.
func CacheControlMiddleware(edge *config.EdgePolicyHolder) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy := edge.Get()
		maxAge, immutable := policy.MaxAgeFor(c.Request.URL.Path)
		c.Header("Cache-Control", cacheControlValue(maxAge, immutable))
		c.Next()
	}
}

func cacheControlValue(maxAge int, immutable bool) string {
	if maxAge <= 0 {
		return "no-cache, must-revalidate"
	}
	value := "public, max-age=" + strconv.Itoa(maxAge)
	if immutable {
		value += ", immutable"
	}
	return value
}
