package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/ratelimit"
)

const userKey = "user"

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// requireAuth resolves the bearer token to a user and stores it on the context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		user, err := s.auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			s.abort(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) models.User {
	return c.MustGet(userKey).(models.User)
}

// rateLimit counts the request against the caller's named policy.
func (s *Server) rateLimit(policy string) gin.HandlerFunc {
	return s.limit(policy, func(c *gin.Context) string {
		return currentUser(c).ID
	})
}

// rateLimitByIP is used before a user is known.
func (s *Server) rateLimitByIP(policy string) gin.HandlerFunc {
	return s.limit(policy, func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	})
}

func (s *Server) limit(policy string, key func(*gin.Context) string) gin.HandlerFunc {
	p := s.cfg.Policy(policy)
	rp := ratelimit.Policy{Limit: p.Limit, Window: p.Window}
	return func(c *gin.Context) {
		d, err := s.limiter.Allow(c.Request.Context(), policy+":"+key(c), rp)
		if err != nil {
			// Fail open while the backend is unreachable.
			logger.Warn("rate limiter unavailable", "policy", policy, "err", err)
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rp.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			s.abort(c, &ratelimit.LimitedError{RetryAfter: d.RetryAfter})
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(err error) (string, bool) {
	var limited *ratelimit.LimitedError
	if !errors.As(err, &limited) {
		return "", false
	}
	secs := int(math.Ceil(limited.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs), true
}
