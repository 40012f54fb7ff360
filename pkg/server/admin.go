package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Justvicky153/ratplacecopy/internal/auth"
	"github.com/Justvicky153/ratplacecopy/internal/store"
	"github.com/Justvicky153/ratplacecopy/pkg/market"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	admin, err := s.store.GetAdmin(c.Request.Context(), sess.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       sess.Token,
		"username":    sess.Username,
		"super_admin": admin.SuperAdmin,
		"expires_at":  sess.ExpiresAt,
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	if token := bearerToken(c); token != "" {
		_ = s.auth.Logout(c.Request.Context(), token)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminPrograms(c *gin.Context) {
	programs, err := s.store.ListPrograms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list programs"})
		return
	}
	if programs == nil {
		programs = []market.Program{}
	}
	c.JSON(http.StatusOK, gin.H{"programs": programs})
}

type programRequest struct {
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	LongDescription  string   `json:"long_description"`
	Category         string   `json:"category"`
	Price            float64  `json:"price"`
	IsFree           bool     `json:"is_free"`
	ImageURL         string   `json:"image_url"`
	Videos           []string `json:"videos"`
	AdditionalImages []string `json:"additional_images"`
	FileURL          string   `json:"file_url"`
}

func (r *programRequest) validate() (market.Category, error) {
	if r.Title == "" {
		return "", errors.New("title is required")
	}
	if r.Price < 0 {
		return "", errors.New("price must not be negative")
	}
	return market.ParseCategory(r.Category)
}

func (s *Server) handleCreateProgram(c *gin.Context) {
	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	category, err := req.validate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	program := market.Program{
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		LongDescription:  req.LongDescription,
		Category:         category,
		Price:            req.Price,
		IsFree:           req.IsFree,
		ImageURL:         req.ImageURL,
		Videos:           req.Videos,
		AdditionalImages: req.AdditionalImages,
		FileURL:          req.FileURL,
		CreatedBy:        currentAdmin(c).Username,
	}
	if err := s.store.CreateProgram(c.Request.Context(), &program); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create program"})
		return
	}
	c.JSON(http.StatusCreated, program)
}

func (s *Server) handleUpdateProgram(c *gin.Context) {
	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	category, err := req.validate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	program := market.Program{
		ID:               c.Param("id"),
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		LongDescription:  req.LongDescription,
		Category:         category,
		Price:            req.Price,
		IsFree:           req.IsFree,
		ImageURL:         req.ImageURL,
		Videos:           req.Videos,
		AdditionalImages: req.AdditionalImages,
		FileURL:          req.FileURL,
	}
	err = s.store.UpdateProgram(c.Request.Context(), &program)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update program"})
		return
	}
	c.JSON(http.StatusOK, program)
}

func (s *Server) handleDeleteProgram(c *gin.Context) {
	err := s.store.DeleteProgram(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete program"})
		return
	}
	c.Status(http.StatusNoContent)
}

type announcementRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleCreateAnnouncement(c *gin.Context) {
	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	ann := market.Announcement{
		Title:     req.Title,
		Content:   req.Content,
		CreatedBy: currentAdmin(c).Username,
	}
	if err := s.store.CreateAnnouncement(c.Request.Context(), &ann); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create announcement"})
		return
	}

	if s.notifyMgr != nil && s.notifyMgr.HasNotifiers() {
		go func(a market.Announcement) {
			if err := s.notifyMgr.Broadcast(context.Background(), &a); err != nil {
				fmt.Fprintf(os.Stderr, "notify error for %q: %v\n", a.Title, err)
			}
		}(ann)
	}

	c.JSON(http.StatusCreated, ann)
}

func (s *Server) handleUpdateAnnouncement(c *gin.Context) {
	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	ann := market.Announcement{
		ID:      c.Param("id"),
		Title:   req.Title,
		Content: req.Content,
	}
	err := s.store.UpdateAnnouncement(c.Request.Context(), &ann)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "announcement not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update announcement"})
		return
	}
	c.JSON(http.StatusOK, ann)
}

func (s *Server) handleDeleteAnnouncement(c *gin.Context) {
	err := s.store.DeleteAnnouncement(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "announcement not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete announcement"})
		return
	}
	c.Status(http.StatusNoContent)
}

type discordLinkRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleSetDiscordLink(c *gin.Context) {
	var req discordLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.store.UpsertSetting(c.Request.Context(), market.SettingDiscordLink, req.URL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save setting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": req.URL})
}

func (s *Server) handleApplications(c *gin.Context) {
	apps, err := s.store.ListApplications(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list applications"})
		return
	}
	if apps == nil {
		apps = []market.AdminApplication{}
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (s *Server) handleDeleteApplication(c *gin.Context) {
	err := s.store.DeleteApplication(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete application"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdmins(c *gin.Context) {
	admins, err := s.store.ListAdmins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list admins"})
		return
	}
	if admins == nil {
		admins = []market.Admin{}
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

type createAdminRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	SuperAdmin bool   `json:"super_admin"`
}

func (s *Server) handleCreateAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create admin"})
		return
	}

	admin := market.Admin{
		Username:     req.Username,
		PasswordHash: hash,
		SuperAdmin:   req.SuperAdmin,
	}
	if err := s.store.CreateAdmin(c.Request.Context(), &admin); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "could not create admin"})
		return
	}
	c.JSON(http.StatusCreated, admin)
}

func (s *Server) handleDeleteAdmin(c *gin.Context) {
	username := c.Param("username")

	target, err := s.store.GetAdmin(c.Request.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "admin not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete admin"})
		return
	}
	if target.SuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "super admins cannot be deleted"})
		return
	}

	if err := s.store.DeleteAdmin(c.Request.Context(), username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete admin"})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleAnalytics lists visit and download events within the requested
// window (day, week or month; default week), with per-program totals.
func (s *Server) handleAnalytics(c *gin.Context) {
	window := c.DefaultQuery("window", "week")
	var since time.Time
	now := time.Now().UTC()
	switch window {
	case "day":
		since = now.AddDate(0, 0, -1)
	case "week":
		since = now.AddDate(0, 0, -7)
	case "month":
		since = now.AddDate(0, -1, 0)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "window must be day, week or month"})
		return
	}

	ctx := c.Request.Context()
	visits, err := s.store.ListVisitsSince(ctx, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load analytics"})
		return
	}
	downloads, err := s.store.ListDownloadsSince(ctx, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load analytics"})
		return
	}
	visitCounts, err := s.store.CountVisitsByProgram(ctx, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load analytics"})
		return
	}
	downloadCounts, err := s.store.CountDownloadsByProgram(ctx, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load analytics"})
		return
	}

	if visits == nil {
		visits = []market.VisitEvent{}
	}
	if downloads == nil {
		downloads = []market.DownloadEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"window":          window,
		"since":           since,
		"visits":          visits,
		"downloads":       downloads,
		"visit_counts":    visitCounts,
		"download_counts": downloadCounts,
	})
}
