package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"creditbot/internal/usecases"
)

// Handler is the read-mostly ops API for the bot: operator login, aggregate
// stats, the admin roster and the recent activity feed. All state changes
// still happen in chat.
type Handler struct {
	users    *usecases.UserUsecase
	security *usecases.AdminSecurityUsecase
	audit    *usecases.AuditUsecase
}

func NewHandler(users *usecases.UserUsecase, security *usecases.AdminSecurityUsecase, audit *usecases.AuditUsecase) *Handler {
	return &Handler{users: users, security: security, audit: audit}
}

func SetupRoutes(r *gin.Engine, auth *usecases.OpsAuthUsecase, users *usecases.UserUsecase, security *usecases.AdminSecurityUsecase, audit *usecases.AuditUsecase, middleware *Middleware) {
	h := NewHandler(users, security, audit)

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "session_id": audit.SessionID()})
	})

	r.POST("/api/auth/login", func(c *gin.Context) {
		var loginReq struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&loginReq); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		token, err := auth.Login(loginReq.Username, loginReq.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerOperator(5, 10))
	{
		api.GET("/stats", h.GetStats)
		api.GET("/admins", h.GetAdmins)
		api.GET("/security-log", h.GetSecurityLog)
	}
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.users.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetAdmins(c *gin.Context) {
	admins, err := h.security.ListAdmins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load admins"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

func (h *Handler) GetSecurityLog(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	entries, err := h.audit.RecentAdminLog(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load security log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
