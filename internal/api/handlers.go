package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
	"github.com/SergeOin/titan/internal/pacing"
	"github.com/SergeOin/titan/internal/storage"
)

// healthResponse is the full operational snapshot.
type healthResponse struct {
	Status      string            `json:"status"`
	Pacing      pacing.Status     `json:"pacing"`
	Loop        ingestStats       `json:"loop"`
	Backends    map[string]string `json:"backends"`
	AuthSuspect int               `json:"auth_suspect_count"`
	EmptyRuns   int               `json:"empty_run_count"`
}

// ingestStats mirrors ingest.Stats for the response body.
type ingestStats struct {
	CyclesRun     int                            `json:"cycles_run"`
	LastCycleAt   *time.Time                     `json:"last_cycle_at,omitempty"`
	LastAccepted  int                            `json:"last_accepted"`
	TotalAccepted int                            `json:"total_accepted"`
	Rejections    map[domain.ExclusionReason]int `json:"rejections,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	backends := s.deps.Writer.Health(c.Request.Context())
	status := "ok"
	for _, state := range backends {
		if state != "ok" {
			status = "degraded"
			break
		}
	}

	stats := s.deps.Loop.Snapshot()
	loop := ingestStats{
		CyclesRun:     stats.CyclesRun,
		LastAccepted:  stats.LastAccepted,
		TotalAccepted: stats.TotalAccepted,
		Rejections:    stats.Rejections,
	}
	if !stats.LastCycleAt.IsZero() {
		loop.LastCycleAt = &stats.LastCycleAt
	}

	authSuspect, emptyRuns := s.deps.Risk.Counters()
	c.JSON(http.StatusOK, healthResponse{
		Status:      status,
		Pacing:      s.deps.Controller.Snapshot(),
		Loop:        loop,
		Backends:    backends,
		AuthSuspect: authSuspect,
		EmptyRuns:   emptyRuns,
	})
}

// listResponse is one page of posts.
type listResponse struct {
	Posts  []*domain.PersistedPost `json:"posts"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

func (s *Server) handleListPosts(c *gin.Context) {
	query := storage.ListQuery{
		Search:         c.Query("search"),
		SortField:      c.DefaultQuery("sort", "collected_at"),
		SortDesc:       c.DefaultQuery("order", "desc") == "desc",
		Limit:          intQuery(c, "limit", 50),
		Offset:         intQuery(c, "offset", 0),
		IncludeDeleted: c.Query("include_deleted") == "true",
	}

	posts, total, err := s.deps.Store.List(c.Request.Context(), query)
	if err != nil {
		s.logger.Error("post listing failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	if posts == nil {
		posts = []*domain.PersistedPost{}
	}

	c.JSON(http.StatusOK, listResponse{
		Posts:  posts,
		Total:  total,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
}

// favoriteRequest toggles the favorite flag.
type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

func (s *Server) handleFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	s.flagPost(c, func() error {
		return s.deps.Store.SetFavorite(c.Request.Context(), c.Param("id"), req.Favorite)
	})
}

func (s *Server) handleDelete(c *gin.Context) {
	s.flagPost(c, func() error {
		return s.deps.Store.SetDeleted(c.Request.Context(), c.Param("id"), true)
	})
}

func (s *Server) handleRestore(c *gin.Context) {
	s.flagPost(c, func() error {
		return s.deps.Store.SetDeleted(c.Request.Context(), c.Param("id"), false)
	})
}

// flagPost runs one flag mutation and maps its errors to HTTP statuses.
func (s *Server) flagPost(c *gin.Context, mutate func() error) {
	if err := mutate(); err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		s.logger.Error("flag update failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTrigger(c *gin.Context) {
	s.deps.Loop.Trigger()
	c.JSON(http.StatusAccepted, gin.H{
		"status": "trigger queued",
		"note":   "pacing restrictions still apply",
	})
}

// pinRequest pins the pacing tier manually.
type pinRequest struct {
	Tier string `json:"tier" binding:"required"`
}

func (s *Server) handlePinTier(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tier is required"})
		return
	}
	if err := s.deps.Controller.PinTier(domain.Tier(req.Tier)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tier": req.Tier})
}

func (s *Server) handleUnpinTier(c *gin.Context) {
	s.deps.Controller.Unpin()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// intQuery parses an integer query parameter with a fallback.
func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
