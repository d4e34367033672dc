package handler

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/auth"
	"github.com/knowledgevault/api/internal/config"
	"github.com/knowledgevault/api/internal/model"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type GoogleAuthHandler struct {
	db           *gorm.DB
	cfg          *config.Config
	tokens       *auth.RefreshTokenStore
	googleConfig *oauth2.Config
}

func NewGoogleAuthHandler(db *gorm.DB, cfg *config.Config, tokens *auth.RefreshTokenStore, googleConfig *oauth2.Config) *GoogleAuthHandler {
	return &GoogleAuthHandler{
		db:           db,
		cfg:          cfg,
		tokens:       tokens,
		googleConfig: googleConfig,
	}
}

// GoogleAuth redirects to Google's OAuth authorization URL.
func (h *GoogleAuthHandler) GoogleAuth(c *gin.Context) {
	if h.googleConfig == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "google sign-in is not configured"})
		return
	}

	state := generateState()
	// Store state in cookie for CSRF protection
	c.SetCookie("oauth_state", state, 600, "/", "", h.cfg.IsProduction(), true)

	url := h.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback handles the OAuth callback: it finds or creates the
// user, sets the auth cookies and sends the browser back to the
// frontend. OAuth accounts carry no password hash, so the password
// login path rejects them like any bad credential.
func (h *GoogleAuthHandler) GoogleCallback(c *gin.Context) {
	if h.googleConfig == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "google sign-in is not configured"})
		return
	}

	// Verify state for CSRF protection
	state := c.Query("state")
	savedState, err := c.Cookie("oauth_state")
	if err != nil || state != savedState {
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL+"?error=invalid_state")
		return
	}
	c.SetCookie("oauth_state", "", -1, "/", "", h.cfg.IsProduction(), true)

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL+"?error=no_code")
		return
	}

	token, err := h.googleConfig.Exchange(c.Request.Context(), code)
	if err != nil {
		log.Printf("Failed to exchange code: %v", err)
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL+"?error=exchange_failed")
		return
	}

	userInfo, err := auth.GetGoogleUserInfo(c.Request.Context(), h.googleConfig, token)
	if err != nil {
		log.Printf("Failed to get user info: %v", err)
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL+"?error=user_info_failed")
		return
	}

	user, err := h.findOrCreateUser(userInfo)
	if err != nil {
		log.Printf("Failed to resolve Google user: %v", err)
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL+"?error=create_user_failed")
		return
	}

	if !user.IsActive {
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL+"?error=inactive_user")
		return
	}

	accessToken, err := auth.GenerateAccessToken(user.ID, h.cfg.SecretKey, h.cfg.AccessTokenExpiry)
	if err != nil {
		log.Printf("Failed to generate access token: %v", err)
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL+"?error=token_failed")
		return
	}

	refreshToken, _, err := h.tokens.Issue(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("Failed to issue refresh token: %v", err)
		c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL+"?error=token_failed")
		return
	}

	auth.SetAuthCookies(c, h.cfg, accessToken, refreshToken)
	c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendURL)
}

func (h *GoogleAuthHandler) findOrCreateUser(info *auth.GoogleUserInfo) (*model.User, error) {
	var user model.User
	result := h.db.Where("provider = ? AND provider_id = ?", "google", info.ID).First(&user)
	if result.Error == nil {
		return &user, nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	user = model.User{
		Email:      info.Email,
		Username:   usernameFromEmail(info.Email),
		IsActive:   true,
		Provider:   "google",
		ProviderID: info.ID,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// usernameFromEmail derives a username for OAuth signups, suffixed with
// random chars to dodge collisions with existing usernames.
func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	if len(local) > 40 {
		local = local[:40]
	}
	return local + "-" + generateState()[:8]
}

func generateState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
