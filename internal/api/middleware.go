package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"fixam/internal/config"
	"fixam/internal/domain"
	"fixam/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const userContextKey = "auth_user"

// BearerAuth resolves the Authorization header to a stored user. Credential
// issuance belongs to the auth collaborator; this layer only looks tokens up.
func BearerAuth(users domain.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		user, err := users.GetUserByToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// currentUser returns the authenticated user set by BearerAuth.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	return v.(*models.User)
}

// RateLimit enforces a per-token limit using a token-bucket per caller.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var limiters sync.Map

	getLimiter := func(key string) *rate.Limiter {
		if v, ok := limiters.Load(key); ok {
			return v.(*rate.Limiter)
		}
		burst := cfg.Burst
		if burst <= 0 {
			burst = 5
		}
		lim := rate.NewLimiter(rate.Limit(cfg.RPS), burst)
		actual, loaded := limiters.LoadOrStore(key, lim)
		if loaded {
			return actual.(*rate.Limiter)
		}
		return lim
	}

	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			key = c.ClientIP()
		}
		if !getLimiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request with method, path, status, duration.
func RequestLogger(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
