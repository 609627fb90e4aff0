package http

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"creditbot/internal/usecases"
)

type Middleware struct {
	auth         *usecases.OpsAuthUsecase
	rateLimiters map[string]*rate.Limiter
	mu           sync.Mutex
}

func NewMiddleware(auth *usecases.OpsAuthUsecase) *Middleware {
	return &Middleware{
		auth:         auth,
		rateLimiters: make(map[string]*rate.Limiter),
	}
}

func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		subject, err := m.auth.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("operator", subject)
		c.Next()
	}
}

// RateLimitPerOperator limits requests based on "operator" from context (must follow AuthRequired)
func (m *Middleware) RateLimitPerOperator(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator, exists := c.Get("operator")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Operator identity not found for rate limiting"})
			return
		}

		key := operator.(string)

		m.mu.Lock()
		limiter, exists := m.rateLimiters[key]
		if !exists {
			limiter = rate.NewLimiter(r, b)
			m.rateLimiters[key] = limiter
		}
		m.mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RequestSizeLimiter limits request body size to prevent DoS
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
