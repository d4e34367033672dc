package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/auth"
	"github.com/knowledgevault/api/internal/config"
	"github.com/knowledgevault/api/internal/model"
	"gorm.io/gorm"
)

const userContextKey = "currentUser"

// BearerToken returns the token from the Authorization header, if any.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// accessToken extracts the access token, header first, cookie fallback.
func accessToken(c *gin.Context) string {
	if token := BearerToken(c); token != "" {
		return token
	}
	if token, err := c.Cookie(auth.AccessTokenCookie); err == nil {
		return token
	}
	return ""
}

// RequireAuth validates the access token, loads the user and stores it in
// the request context. Missing or invalid tokens get a uniform 401;
// inactive users get 403.
func RequireAuth(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			c.Abort()
			return
		}

		userID, err := auth.ValidateAccessToken(token, cfg.SecretKey)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		var user model.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "inactive user"})
			c.Abort()
			return
		}

		c.Set(userContextKey, &user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) *model.User {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil
	}
	user, _ := value.(*model.User)
	return user
}
