// api/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// contextKey is a type for context keys
type contextKey string

const (
	APITokenContextKey contextKey = "api_token"
	UserContextKey     contextKey = "user"
)

// TokenAuth middleware validates API tokens from the Authorization header
// and resolves the owning user
func TokenAuth(repo repository.Repository, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid Authorization header format. Expected: 'Bearer {token}'",
			})
			c.Abort()
			return
		}

		apiToken, err := repo.FindAPIToken(c.Request.Context(), parts[1])
		if err != nil {
			log.WithError(err).Warn("Invalid API token")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API token",
			})
			c.Abort()
			return
		}

		if apiToken.ExpiresAt != nil && apiToken.ExpiresAt.Before(time.Now()) {
			log.Warn("Expired API token")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "API token expired",
			})
			c.Abort()
			return
		}

		if apiToken.User == nil || !apiToken.User.IsActive {
			log.Warnf("Inactive user attempted to authenticate: %d", apiToken.UserID)
			c.JSON(http.StatusForbidden, gin.H{
				"error": "User account is inactive",
			})
			c.Abort()
			return
		}

		// Update last used timestamp without blocking the request
		now := time.Now()
		apiToken.LastUsedAt = &now
		go func() {
			if err := repo.SaveAPIToken(context.Background(), apiToken); err != nil {
				log.WithError(err).Warn("Failed to update token last-used timestamp")
			}
		}()

		c.Set(string(APITokenContextKey), apiToken)
		c.Set(string(UserContextKey), apiToken.User)

		c.Next()
	}
}

// GetUserFromContext retrieves the authenticated user from the context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	userVal, exists := c.Get(string(UserContextKey))
	if !exists {
		return nil, errors.New("user not found in context")
	}

	user, ok := userVal.(*models.User)
	if !ok {
		return nil, errors.New("user in context has incorrect type")
	}

	return user, nil
}
