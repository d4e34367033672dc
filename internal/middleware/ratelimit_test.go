package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitedRouter(rate string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(ratelimit.New(), rate, LimitByIP, nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	r := rateLimitedRouter("3/minute")

	var w *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "203.0.113.7:1000"
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "203.0.113.7:1000"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var body struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retry_after"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate limit exceeded", body.Error)
	assert.Equal(t, 60, body.RetryAfter)
}

func TestRateLimitSeparatesClients(t *testing.T) {
	r := rateLimitedRouter("1/minute")

	first := httptest.NewRequest("POST", "/login", nil)
	first.RemoteAddr = "203.0.113.7:1000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, first)
	assert.Equal(t, http.StatusOK, w.Code)

	blocked := httptest.NewRequest("POST", "/login", nil)
	blocked.RemoteAddr = "203.0.113.7:2000"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, blocked)
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "same IP, different port shares the window")

	other := httptest.NewRequest("POST", "/login", nil)
	other.RemoteAddr = "203.0.113.8:1000"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code, "different IP gets its own window")
}

func TestRateLimitHeadersOnSuccess(t *testing.T) {
	r := rateLimitedRouter("5/minute")

	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "203.0.113.7:1000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}
