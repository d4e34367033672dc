package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/knowledgevault/api/internal/ratelimit"
)

const (
	// LimitByIP keys the window on the caller's IP.
	LimitByIP = "ip"
	// LimitByUser keys the window on the authenticated user, falling
	// back to IP when the request carries no user.
	LimitByUser = "user"
)

// RateLimit gates a route with a sliding-window limit like "5/minute".
// Every response carries X-RateLimit-* headers; rejections add
// Retry-After and a retry_after body field for well-behaved clients.
func RateLimit(limiter *ratelimit.SlidingWindow, rate string, keyType string, trustedProxies []string) gin.HandlerFunc {
	limit, window := ratelimit.ParseRate(rate)

	return func(c *gin.Context) {
		key := limitKey(c, keyType, trustedProxies)

		allowed, info := limiter.Allow(key, limit, window)

		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.Reset, 10))

		if !allowed {
			RecordRateLimited(keyType)
			c.Header("Retry-After", strconv.Itoa(info.RetryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": info.RetryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// limitKey scopes the window to the route, so login attempts never eat
// into the register budget, and to the caller.
func limitKey(c *gin.Context, keyType string, trustedProxies []string) string {
	route := c.FullPath()
	if keyType == LimitByUser {
		if user := CurrentUser(c); user != nil {
			return route + "|user:" + user.ID
		}
	}
	return route + "|ip:" + ClientIP(c, trustedProxies)
}
