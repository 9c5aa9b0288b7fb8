package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Limiter decides whether another hit for key fits in its window
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

// RateLimitedHook is called for every rejected request
type RateLimitedHook func(c *gin.Context, key string, current int64)

// RateLimit throttles requests per authenticated user, falling back to the
// client IP. When the limiter itself fails the request is let through.
func RateLimit(limiter Limiter, logger logrus.FieldLogger, onLimited RateLimitedHook) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if userCtx, ok := GetUserContext(c); ok {
			key = "user:" + strconv.FormatInt(userCtx.UserID, 10)
		}

		allowed, current, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WithError(err).WithField("key", key).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !allowed {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			if onLimited != nil {
				onLimited(c, key, current)
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     "Too many booking attempts. Please wait before trying again.",
				"code":        "RATE_LIMITED",
				"retry_after": secs,
			})
			return
		}

		c.Next()
	}
}
