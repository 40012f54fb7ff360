package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/Justvicky153/ratplacecopy/internal/auth"
	"github.com/Justvicky153/ratplacecopy/internal/config"
	"github.com/Justvicky153/ratplacecopy/internal/store"
	"github.com/Justvicky153/ratplacecopy/pkg/catalog"
	"github.com/Justvicky153/ratplacecopy/pkg/engagement"
	"github.com/Justvicky153/ratplacecopy/pkg/market"
	"github.com/Justvicky153/ratplacecopy/pkg/notify"
)

const adminContextKey = "admin"

// Server provides the HTTP API.
type Server struct {
	store     store.Store
	engine    *catalog.Engine
	tracker   *engagement.Tracker
	auth      *auth.Manager
	notifyMgr *notify.Manager
	rates     config.RateLimitConfig
	port      int
}

// New creates a new HTTP server.
func New(
	s store.Store,
	engine *catalog.Engine,
	tracker *engagement.Tracker,
	authMgr *auth.Manager,
	notifyMgr *notify.Manager,
	rates config.RateLimitConfig,
	port int,
) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:     s,
		engine:    engine,
		tracker:   tracker,
		auth:      authMgr,
		notifyMgr: notifyMgr,
		rates:     rates,
		port:      port,
	}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/catalog", s.handleCatalog)
		v1.GET("/programs/:id", s.handleProgram)
		v1.POST("/programs/:id/download", s.handleDownload)
		v1.GET("/announcements", s.handleAnnouncements)
		v1.GET("/likes", s.handleLikeState)
		v1.POST("/likes", rateLimit(s.rates.Like), s.handleLike)
		v1.GET("/settings/discord", s.handleDiscordLink)
		v1.POST("/applications", rateLimit(s.rates.Apply), s.handleApply)

		v1.POST("/admin/login", s.handleLogin)
		v1.POST("/admin/logout", s.handleLogout)

		admin := v1.Group("/admin", s.requireAdmin())
		{
			admin.GET("/programs", s.handleAdminPrograms)
			admin.POST("/programs", s.handleCreateProgram)
			admin.PUT("/programs/:id", s.handleUpdateProgram)
			admin.DELETE("/programs/:id", s.handleDeleteProgram)

			admin.POST("/announcements", s.handleCreateAnnouncement)
			admin.PUT("/announcements/:id", s.handleUpdateAnnouncement)
			admin.DELETE("/announcements/:id", s.handleDeleteAnnouncement)

			admin.PUT("/settings/discord", s.handleSetDiscordLink)

			admin.GET("/applications", s.handleApplications)
			admin.DELETE("/applications/:id", s.handleDeleteApplication)

			admin.GET("/admins", s.handleAdmins)
			admin.POST("/admins", s.requireSuper(), s.handleCreateAdmin)
			admin.DELETE("/admins/:username", s.requireSuper(), s.handleDeleteAdmin)

			admin.GET("/analytics", s.handleAnalytics)
		}
	}

	return r
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Fprintf(os.Stderr, "ratplace server listening on %s\n", addr)
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// identity resolves the caller's engagement identity from the request,
// falling back to a synthetic token when no client IP is available.
func (s *Server) identity(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return engagement.FallbackIdentity()
}

// requireAdmin authenticates the Bearer session token and stores the
// admin account on the request context.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, err := s.auth.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(adminContextKey, admin)
		c.Next()
	}
}

// requireSuper gates super-admin-only routes. Must run after requireAdmin.
func (s *Server) requireSuper() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentAdmin(c).SuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "super admin required"})
			return
		}
		c.Next()
	}
}

func currentAdmin(c *gin.Context) *market.Admin {
	return c.MustGet(adminContextKey).(*market.Admin)
}

func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// rateLimit builds a per-IP rate limit middleware from a formatted rate
// such as "10-M". An unparsable rate disables the limit.
func rateLimit(formatted string) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid rate %q, limit disabled: %v\n", formatted, err)
		return func(c *gin.Context) { c.Next() }
	}
	return mgin.NewMiddleware(limiter.New(memory.NewStore(), rate))
}
