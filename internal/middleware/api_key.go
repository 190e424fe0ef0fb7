package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/errwatch/errwatch-backend/internal/common"
	"github.com/errwatch/errwatch-backend/internal/config"
)

// APIKeyAuth authenticates requests against the statically configured keys.
// Checks X-API-Key header or api_key query parameter. A key's scopes must
// include requiredScope (or "admin", which implies everything).
// With no keys configured the check is disabled (local development).
func APIKeyAuth(keys []config.APIKey, requiredScope string) gin.HandlerFunc {
	byKey := make(map[string]config.APIKey, len(keys))
	for _, k := range keys {
		byKey[k.Key] = k
	}

	return func(c *gin.Context) {
		if len(byKey) == 0 {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}
		if key == "" {
			common.ErrorResponse(c, http.StatusUnauthorized, "API key required", nil)
			c.Abort()
			return
		}

		apiKey, ok := byKey[key]
		if !ok {
			common.ErrorResponse(c, http.StatusUnauthorized, "invalid API key", nil)
			c.Abort()
			return
		}

		// Check scope
		if requiredScope != "" {
			scopes := strings.Split(apiKey.Scopes, ",")
			hasScope := false
			for _, s := range scopes {
				if strings.TrimSpace(s) == requiredScope || strings.TrimSpace(s) == "admin" {
					hasScope = true
					break
				}
			}
			if !hasScope {
				common.ErrorResponse(c, http.StatusForbidden, "Insufficient API key scope", nil)
				c.Abort()
				return
			}
		}

		c.Set("api_key_name", apiKey.Name)
		c.Next()
	}
}
