package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testContext(remoteAddr string, headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = remoteAddr
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestClientIPDirectPeer(t *testing.T) {
	c := testContext("203.0.113.7:54321", nil)
	assert.Equal(t, "203.0.113.7", ClientIP(c, nil))
}

func TestClientIPIgnoresHeadersFromUntrustedPeer(t *testing.T) {
	c := testContext("203.0.113.7:54321", map[string]string{
		"X-Forwarded-For": "10.0.0.1",
		"X-Real-IP":       "10.0.0.2",
	})
	assert.Equal(t, "203.0.113.7", ClientIP(c, []string{"192.168.1.1"}))
}

func TestClientIPTrustedProxyForwardedFor(t *testing.T) {
	c := testContext("192.168.1.1:443", map[string]string{
		"X-Forwarded-For": "203.0.113.7, 192.168.1.1",
	})
	assert.Equal(t, "203.0.113.7", ClientIP(c, []string{"192.168.1.1"}))
}

func TestClientIPTrustedProxyRealIP(t *testing.T) {
	c := testContext("192.168.1.1:443", map[string]string{
		"X-Real-IP": "203.0.113.7",
	})
	assert.Equal(t, "203.0.113.7", ClientIP(c, []string{"192.168.1.1"}))
}

func TestClientIPTrustedProxyNoHeaders(t *testing.T) {
	c := testContext("192.168.1.1:443", nil)
	assert.Equal(t, "192.168.1.1", ClientIP(c, []string{"192.168.1.1"}))
}
