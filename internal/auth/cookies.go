package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/config"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	// The refresh cookie only travels to the auth endpoints.
	refreshCookiePath = "/api/v1/auth"
)

func cookieSameSite(cfg *config.Config) http.SameSite {
	if cfg.IsProduction() {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

// SetAuthCookies attaches both tokens as HTTP-only cookies. The access
// cookie lives on the site root, the refresh cookie is scoped to the
// auth path prefix.
func SetAuthCookies(c *gin.Context, cfg *config.Config, accessToken, refreshToken string) {
	c.SetSameSite(cookieSameSite(cfg))
	c.SetCookie(AccessTokenCookie, accessToken, int(cfg.AccessTokenExpiry.Seconds()), "/", "", cfg.IsProduction(), true)
	c.SetCookie(RefreshTokenCookie, refreshToken, int(cfg.RefreshTokenExpiry.Seconds()), refreshCookiePath, "", cfg.IsProduction(), true)
}

// ClearAuthCookies deletes both cookies. Path and flags must match the
// ones used at set time or browsers keep the originals.
func ClearAuthCookies(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(cookieSameSite(cfg))
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", cfg.IsProduction(), true)
	c.SetCookie(RefreshTokenCookie, "", -1, refreshCookiePath, "", cfg.IsProduction(), true)
}
