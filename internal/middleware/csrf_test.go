package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func originGuardRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OriginGuard([]string{"http://localhost:3000", "https://vault.example.com"}))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/thing", ok)
	r.POST("/thing", ok)
	r.PUT("/thing", ok)
	r.DELETE("/thing", ok)
	return r
}

func TestOriginGuard(t *testing.T) {
	r := originGuardRouter()

	tests := []struct {
		name    string
		method  string
		headers map[string]string
		want    int
	}{
		{"GET passes without origin", "GET", nil, http.StatusOK},
		{"POST with allowed origin", "POST", map[string]string{"Origin": "http://localhost:3000"}, http.StatusOK},
		{"POST with second allowed origin", "POST", map[string]string{"Origin": "https://vault.example.com"}, http.StatusOK},
		{"POST with foreign origin", "POST", map[string]string{"Origin": "https://evil.example.com"}, http.StatusForbidden},
		{"POST without origin or referer", "POST", nil, http.StatusForbidden},
		{"POST falls back to referer", "POST", map[string]string{"Referer": "http://localhost:3000/app/notes"}, http.StatusOK},
		{"POST with foreign referer", "POST", map[string]string{"Referer": "https://evil.example.com/page"}, http.StatusForbidden},
		{"subdomain is not an exact match", "POST", map[string]string{"Origin": "https://sub.vault.example.com"}, http.StatusForbidden},
		{"scheme matters", "POST", map[string]string{"Origin": "https://localhost:3000"}, http.StatusForbidden},
		{"bearer requests bypass the check", "DELETE", map[string]string{"Authorization": "Bearer some-token"}, http.StatusOK},
		{"PUT with allowed origin", "PUT", map[string]string{"Origin": "http://localhost:3000"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/thing", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
