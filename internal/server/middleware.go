package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nhle/carehub/internal/authtoken"
)

const (
	ctxKeyUserID    = "user_id"
	headerRequestID = "X-Request-ID"
)

// RequestLogger assigns a request id and writes one access log line per
// request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(headerRequestID, reqID)

		start := time.Now()
		c.Next()

		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Str("user_id", GetUserID(c)).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Recovery turns a panic in a handler into a 500 response.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Msg("handler panicked")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// JWTAuth verifies the bearer token and stores its user id on the context.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authorization header required",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "malformed bearer token",
			})
			return
		}

		claims, err := authtoken.Verify(secret, tokenString)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, authtoken.ErrExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(ctxKeyUserID, claims.UserID)
		c.Next()
	}
}

// GetUserID returns the user id set by JWTAuth.
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(ctxKeyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// userLimiter hands out one token bucket per user.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newUserLimiter(perSec float64, burst int) *userLimiter {
	return &userLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSec),
		burst:    burst,
	}
}

func (l *userLimiter) get(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	return lim
}

// RateLimit rejects a user's requests beyond perSec with 429. It must run
// after JWTAuth. A non-positive perSec disables limiting.
func RateLimit(perSec float64, burst int) gin.HandlerFunc {
	if perSec <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := newUserLimiter(perSec, burst)

	return func(c *gin.Context) {
		lim := limiter.get(GetUserID(c))
		if !lim.Allow() {
			wait := time.Duration(float64(time.Second) / perSec)
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
