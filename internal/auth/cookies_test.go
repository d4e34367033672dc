package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		Environment:        env,
		AccessTokenExpiry:  30 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

func cookiesFromRecorder(t *testing.T, setCookies func(c *gin.Context)) map[string]*http.Cookie {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/auth/login", nil)

	setCookies(c)

	out := make(map[string]*http.Cookie)
	for _, ck := range w.Result().Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func TestSetAuthCookiesDevelopment(t *testing.T) {
	cfg := testConfig("development")

	cookies := cookiesFromRecorder(t, func(c *gin.Context) {
		SetAuthCookies(c, cfg, "access-value", "refresh-value")
	})

	access := cookies[AccessTokenCookie]
	require.NotNil(t, access)
	assert.Equal(t, "access-value", access.Value)
	assert.Equal(t, "/", access.Path)
	assert.True(t, access.HttpOnly)
	assert.False(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, int(cfg.AccessTokenExpiry.Seconds()), access.MaxAge)

	refresh := cookies[RefreshTokenCookie]
	require.NotNil(t, refresh)
	assert.Equal(t, "refresh-value", refresh.Value)
	assert.Equal(t, "/api/v1/auth", refresh.Path)
	assert.True(t, refresh.HttpOnly)
	assert.False(t, refresh.Secure)
	assert.Equal(t, int(cfg.RefreshTokenExpiry.Seconds()), refresh.MaxAge)
}

func TestSetAuthCookiesProduction(t *testing.T) {
	cfg := testConfig("production")

	cookies := cookiesFromRecorder(t, func(c *gin.Context) {
		SetAuthCookies(c, cfg, "access-value", "refresh-value")
	})

	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		ck := cookies[name]
		require.NotNil(t, ck, name)
		assert.True(t, ck.Secure, name)
		assert.True(t, ck.HttpOnly, name)
		assert.Equal(t, http.SameSiteStrictMode, ck.SameSite, name)
	}
}

func TestClearAuthCookiesMatchesAttributes(t *testing.T) {
	cfg := testConfig("production")

	cookies := cookiesFromRecorder(t, func(c *gin.Context) {
		ClearAuthCookies(c, cfg)
	})

	access := cookies[AccessTokenCookie]
	require.NotNil(t, access)
	assert.Equal(t, "/", access.Path)
	assert.Less(t, access.MaxAge, 0)
	assert.True(t, access.Secure)

	refresh := cookies[RefreshTokenCookie]
	require.NotNil(t, refresh)
	assert.Equal(t, "/api/v1/auth", refresh.Path)
	assert.Less(t, refresh.MaxAge, 0)
	assert.True(t, refresh.Secure)
}
