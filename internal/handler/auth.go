package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/auth"
	"github.com/knowledgevault/api/internal/config"
	"github.com/knowledgevault/api/internal/middleware"
	"github.com/knowledgevault/api/internal/model"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db     *gorm.DB
	cfg    *config.Config
	tokens *auth.RefreshTokenStore
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config, tokens *auth.RefreshTokenStore) *AuthHandler {
	return &AuthHandler{
		db:     db,
		cfg:    cfg,
		tokens: tokens,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the bearer-flavored issuance body used by the
// extension endpoints, which have no cookie jar.
type TokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	User         *model.User `json:"user"`
}

// issueTokens mints an access/refresh pair for the user.
func (h *AuthHandler) issueTokens(c *gin.Context, user *model.User) (string, string, error) {
	accessToken, err := auth.GenerateAccessToken(user.ID, h.cfg.SecretKey, h.cfg.AccessTokenExpiry)
	if err != nil {
		return "", "", err
	}

	refreshToken, _, err := h.tokens.Issue(c.Request.Context(), user.ID)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// findByEmail compares emails case-insensitively.
func (h *AuthHandler) findByEmail(email string) (*model.User, error) {
	var user model.User
	if err := h.db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates a new account and signs the user in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration payload"})
		return
	}

	if _, err := h.findByEmail(req.Email); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		return
	}

	var existing model.User
	if err := h.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user := model.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := h.db.Create(&user).Error; err != nil {
		// Racing duplicate inserts land on the unique indexes.
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, &user)
	if err != nil {
		log.Printf("Failed to issue tokens for new user %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}
	auth.SetAuthCookies(c, h.cfg, accessToken, refreshToken)

	c.JSON(http.StatusCreated, user)
}

// login authenticates credentials without leaking whether the email or
// the password was wrong.
func (h *AuthHandler) login(c *gin.Context) *model.User {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return nil
	}

	user, err := h.findByEmail(req.Email)
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		middleware.RecordLogin(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect email or password"})
		return nil
	}

	if !user.IsActive {
		middleware.RecordLogin(false)
		c.JSON(http.StatusForbidden, gin.H{"error": "inactive user"})
		return nil
	}

	now := time.Now()
	if err := h.db.Model(user).Update("last_login", now).Error; err != nil {
		log.Printf("Failed to update last_login for user %s: %v", user.ID, err)
	}
	user.LastLogin = &now

	middleware.RecordLogin(true)
	return user
}

// Login signs a user in with the cookie transport.
func (h *AuthHandler) Login(c *gin.Context) {
	user := h.login(c)
	if user == nil {
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}
	auth.SetAuthCookies(c, h.cfg, accessToken, refreshToken)

	c.JSON(http.StatusOK, user)
}

// RefreshToken rotates the refresh token from the auth cookie and
// reissues both cookies. Expired, revoked and unknown tokens are
// indistinguishable to the caller.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	plaintext, err := c.Cookie(auth.RefreshTokenCookie)
	if err != nil || plaintext == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}

	newRefresh, _, user, err := h.tokens.Rotate(c.Request.Context(), plaintext)
	if err != nil {
		middleware.RecordTokenRotation(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	middleware.RecordTokenRotation(true)

	accessToken, err := auth.GenerateAccessToken(user.ID, h.cfg.SecretKey, h.cfg.AccessTokenExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}
	auth.SetAuthCookies(c, h.cfg, accessToken, newRefresh)

	c.JSON(http.StatusOK, user)
}

// Logout revokes the current refresh token and clears both cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	if plaintext, err := c.Cookie(auth.RefreshTokenCookie); err == nil && plaintext != "" {
		if _, err := h.tokens.Revoke(c.Request.Context(), plaintext); err != nil {
			log.Printf("Failed to revoke refresh token on logout: %v", err)
		}
	}
	auth.ClearAuthCookies(c, h.cfg)

	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// RevokeAllTokens revokes every active refresh token the current user
// holds ("log out everywhere") and reports the count for audit.
func (h *AuthHandler) RevokeAllTokens(c *gin.Context) {
	user := middleware.CurrentUser(c)

	count, err := h.tokens.RevokeAll(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke tokens"})
		return
	}
	auth.ClearAuthCookies(c, h.cfg)

	c.JSON(http.StatusOK, gin.H{"revoked_count": count})
}

// Me returns the current user.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// tokenResponse builds the JSON body for the bearer-flavored endpoints.
func (h *AuthHandler) tokenResponse(accessToken, refreshToken string, user *model.User) TokenResponse {
	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(h.cfg.AccessTokenExpiry.Seconds()),
		User:         user,
	}
}

// ExtensionLogin signs in a non-cookie client (browser extension) and
// returns the tokens in the response body.
func (h *AuthHandler) ExtensionLogin(c *gin.Context) {
	user := h.login(c)
	if user == nil {
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, h.tokenResponse(accessToken, refreshToken, user))
}

type extensionRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ExtensionRefreshToken rotates a refresh token presented in the body.
func (h *AuthHandler) ExtensionRefreshToken(c *gin.Context) {
	var req extensionRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	newRefresh, _, user, err := h.tokens.Rotate(c.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.RecordTokenRotation(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	middleware.RecordTokenRotation(true)

	accessToken, err := auth.GenerateAccessToken(user.ID, h.cfg.SecretKey, h.cfg.AccessTokenExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, h.tokenResponse(accessToken, newRefresh, user))
}

// ExtensionLogout revokes a refresh token presented in the body.
func (h *AuthHandler) ExtensionLogout(c *gin.Context) {
	var req extensionRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	if _, err := h.tokens.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}
