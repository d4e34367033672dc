package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIP extracts the caller's IP. Forwarding headers are honored only
// when the direct peer is a configured trusted proxy, otherwise the
// socket peer wins so rate-limit keys cannot be spoofed.
func ClientIP(c *gin.Context, trustedProxies []string) string {
	direct, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		direct = c.Request.RemoteAddr
	}
	if direct == "" {
		return "unknown"
	}

	trusted := false
	for _, proxy := range trustedProxies {
		if proxy == direct {
			trusted = true
			break
		}
	}
	if !trusted {
		return direct
	}

	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}

	return direct
}
