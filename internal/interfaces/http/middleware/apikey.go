package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// API key authentication constants
const (
	// APIKeyHeader is the header machine clients present their key in
	APIKeyHeader = "X-API-Key"
	// APIKeyAuthenticatedKey marks a request authenticated by API key
	APIKeyAuthenticatedKey = "api_key_authenticated"
)

// APIKeyMiddlewareConfig holds configuration for API key middleware
type APIKeyMiddlewareConfig struct {
	// Keys are the accepted API keys. With no keys configured every
	// request falls through to the next authenticator.
	Keys []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// APIKeyAuthMiddleware authenticates machine clients such as reading upload
// tools and payment import jobs by the X-API-Key header. Requests without
// the header fall through to JWT authentication; requests presenting an
// unknown key are rejected immediately.
func APIKeyAuthMiddleware(cfg APIKeyMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(APIKeyHeader)
		if provided == "" || len(cfg.Keys) == 0 {
			c.Next()
			return
		}

		for _, key := range cfg.Keys {
			if key != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
				c.Set(APIKeyAuthenticatedKey, true)
				c.Next()
				return
			}
		}

		if cfg.Logger != nil {
			cfg.Logger.Warn("API key authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Invalid API key",
			},
		})
	}
}

// IsAPIKeyAuthenticated reports whether the request was authenticated by API key
func IsAPIKeyAuthenticated(c *gin.Context) bool {
	return c.GetBool(APIKeyAuthenticatedKey)
}
