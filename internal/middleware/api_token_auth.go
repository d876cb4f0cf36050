package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
)

// APITokenAuth is a middleware that authenticates requests using API tokens.
// Sync agents authenticate with the x-api-key header instead of a JWT.
func APITokenAuth(tokenSvc services.APITokenSvc) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip authentication for public routes
		if isPublicRoute(c.Request.URL.Path) {
			c.Next()
			return
		}

		// Get the API key header
		apiKey := c.GetHeader("x-api-key")
		if apiKey == "" {
			c.Next() // No api key provided, let it continue to JWT auth
			return
		}

		// Validate the token
		user, err := tokenSvc.ValidateToken(c.Request.Context(), apiKey)
		if err != nil {
			c.Next() // Token validation failed, let JWT auth decide
			return
		}

		// Token is valid, set user ID in context and skip JWT auth
		c.Set("userID", user.UserID)
		c.Set("authMethod", "api_token")
		c.Next()
	}
}

// isPublicRoute checks if the given path is a public route that doesn't require authentication
func isPublicRoute(path string) bool {
	if path == "/health" {
		return true
	}
	// Swagger UI is only mounted outside production
	return strings.HasPrefix(path, "/swagger/")
}
