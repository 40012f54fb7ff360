package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/Justvicky153/ratplacecopy/pkg/catalog"
	"github.com/Justvicky153/ratplacecopy/pkg/market"
)

// handleCatalog renders the filtered, category-partitioned program
// catalog. Repeated "category" params select categories; none selected
// means all pass. The catalog is re-fetched on every request; a fetch
// failure silently serves the prior view.
func (s *Server) handleCatalog(c *gin.Context) {
	var categories []market.Category
	for _, raw := range c.QueryArray("category") {
		cat, err := market.ParseCategory(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		categories = append(categories, cat)
	}

	s.engine.Load(c.Request.Context())
	sections, total := s.engine.SectionsFor(c.Query("q"), categories)
	for i := range sections {
		normalizePrices(sections[i].Programs)
	}

	c.JSON(http.StatusOK, gin.H{
		"sections":        sections,
		"total":           total,
		"stale":           s.engine.LoadFailed(),
		"collapsed_limit": catalog.CollapsedLimit,
	})
}

func (s *Server) handleProgram(c *gin.Context) {
	program, err := s.store.GetProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found"})
		return
	}

	identity := s.identity(c)
	go s.tracker.RecordVisit(context.Background(), program.ID, identity)

	program.Price = program.DisplayPrice()
	c.JSON(http.StatusOK, program)
}

func (s *Server) handleDownload(c *gin.Context) {
	program, err := s.store.GetProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found"})
		return
	}
	if program.FileURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no file available"})
		return
	}

	identity := s.identity(c)
	go s.tracker.RecordDownload(context.Background(), program.ID, identity)

	c.JSON(http.StatusOK, gin.H{"file_url": program.FileURL})
}

func (s *Server) handleAnnouncements(c *gin.Context) {
	announcements, err := s.store.ListAnnouncements(c.Request.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "list announcements: %v\n", err)
		announcements = nil
	}
	if announcements == nil {
		announcements = []market.Announcement{}
	}
	c.JSON(http.StatusOK, gin.H{"announcements": announcements})
}

func (s *Server) handleLikeState(c *gin.Context) {
	count, liked, err := s.tracker.LikeState(c.Request.Context(), s.identity(c))
	if err != nil {
		// Degrade to zero state rather than failing the page.
		fmt.Fprintf(os.Stderr, "like state: %v\n", err)
		count, liked = 0, false
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "liked": liked})
}

func (s *Server) handleLike(c *gin.Context) {
	count, liked, err := s.tracker.Like(c.Request.Context(), s.identity(c))
	if err != nil {
		fmt.Fprintf(os.Stderr, "like: %v\n", err)
		c.JSON(http.StatusOK, gin.H{"count": 0, "liked": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "liked": liked})
}

func (s *Server) handleDiscordLink(c *gin.Context) {
	url, err := s.store.GetSetting(c.Request.Context(), market.SettingDiscordLink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get discord link: %v\n", err)
		url = ""
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

type applyRequest struct {
	DiscordUsername string `json:"discord_username"`
	Email           string `json:"email"`
	Reason          string `json:"reason"`
}

func (s *Server) handleApply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.DiscordUsername == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discord_username is required"})
		return
	}

	app := market.AdminApplication{
		DiscordUsername: req.DiscordUsername,
		Email:           req.Email,
		Reason:          req.Reason,
		IPAddress:       s.identity(c),
	}
	added, err := s.store.CreateApplication(c.Request.Context(), &app)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store application"})
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{"already_applied": true})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": app.ID})
}

// normalizePrices applies the display rule: free programs show price 0,
// whatever is stored.
func normalizePrices(programs []market.Program) {
	for i := range programs {
		programs[i].Price = programs[i].DisplayPrice()
	}
}
