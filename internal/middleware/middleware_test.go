package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubLimiter struct {
	allowed    bool
	current    int64
	retryAfter time.Duration
	err        error
	keys       []string
}

func (s *stubLimiter) Allow(ctx context.Context, key string) (bool, int64, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.current, s.retryAfter, s.err
}

func rateLimitedRouter(l Limiter, hook RateLimitedHook, user *UserContext) *gin.Engine {
	router := setupTestRouter()
	if user != nil {
		router.Use(func(c *gin.Context) {
			c.Set(UserContextKey, *user)
			c.Next()
		})
	}
	router.POST("/bookings", RateLimit(l, quietLogger(), hook), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"message": "booked"})
	})
	return router
}

func postBooking(router *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsWithinLimit(t *testing.T) {
	l := &stubLimiter{allowed: true, current: 1}
	w := postBooking(rateLimitedRouter(l, nil, &UserContext{UserID: 9, Role: "user"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"user:9"}, l.keys)
}

func TestRateLimit_KeysAnonymousRequestsByIP(t *testing.T) {
	l := &stubLimiter{allowed: true}
	postBooking(rateLimitedRouter(l, nil, nil))

	assert.Equal(t, []string{"ip:203.0.113.9"}, l.keys)
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	l := &stubLimiter{allowed: false, current: 6, retryAfter: 1500 * time.Millisecond}
	var hooked string
	hook := func(c *gin.Context, key string, current int64) { hooked = key }

	w := postBooking(rateLimitedRouter(l, hook, &UserContext{UserID: 9}))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "user:9", hooked)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	l := &stubLimiter{err: errors.New("redis down")}
	w := postBooking(rateLimitedRouter(l, nil, nil))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generated", func(t *testing.T) {
		w := doGet(router, "/ping", "")
		rid := w.Header().Get(RequestIDHeader)
		assert.Len(t, rid, 36)
		assert.Equal(t, rid, w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", w.Body.String())
	})
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID(), RequestLogger(quietLogger()))
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	assert.Equal(t, http.StatusNotFound, doGet(router, "/missing", "").Code)
	assert.Equal(t, http.StatusInternalServerError, doGet(router, "/boom", "").Code)
}
