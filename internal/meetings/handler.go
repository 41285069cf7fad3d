package meetings

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/response"
)

// UpsertRequest is the body for POST /meetings.
type UpsertRequest struct {
	ID            string            `json:"id" binding:"required"`
	EventID       string            `json:"event_id"`
	AccountID     string            `json:"account_id"`
	Platform      string            `json:"platform"`
	Title         string            `json:"title" binding:"required"`
	Start         time.Time         `json:"start" binding:"required"`
	Attendees     []models.Attendee `json:"attendees"`
	Transcript    string            `json:"transcript"`
	BotID         string            `json:"bot_id"`
	HasRecording  bool              `json:"has_recording"`
	HasTranscript bool              `json:"has_transcript"`
}

// Handler handles meeting HTTP endpoints.
type Handler struct {
	repo   *Repository
	cache  *Cache
	logger *zap.Logger
}

// NewHandler creates a meeting handler.
func NewHandler(repo *Repository, cache *Cache, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, cache: cache, logger: logger}
}

// List handles GET /meetings?limit&offset.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Internal(c, "failed to list meetings")
		return
	}
	if list == nil {
		list = []models.Meeting{}
	}
	response.OK(c, list)
}

// Get handles GET /meetings/:id.
func (h *Handler) Get(c *gin.Context) {
	m, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Internal(c, "failed to load meeting")
		return
	}
	if m == nil {
		response.NotFound(c, "meeting not found")
		return
	}
	response.OK(c, m)
}

// Index handles GET /meetings/index.
func (h *Handler) Index(c *gin.Context) {
	entries, err := h.cache.Index(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load meeting index")
		return
	}
	if entries == nil {
		entries = []models.MeetingIndexEntry{}
	}
	response.OK(c, entries)
}

// Upsert handles POST /meetings.
func (h *Handler) Upsert(c *gin.Context) {
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventID := req.EventID
	if eventID == "" {
		eventID = req.ID
	}
	platform := models.Platform(req.Platform)
	if platform == "" {
		platform = models.PlatformUnknown
	}
	m := &models.Meeting{
		ID:         req.ID,
		EventID:    eventID,
		AccountID:  req.AccountID,
		Platform:   platform,
		Title:      req.Title,
		Start:      req.Start,
		Attendees:  req.Attendees,
		Transcript: req.Transcript,
		Media: models.MediaStatus{
			BotID:         req.BotID,
			HasRecording:  req.HasRecording,
			HasTranscript: req.HasTranscript,
		},
	}
	if err := h.repo.Upsert(c.Request.Context(), m); err != nil {
		h.logger.Error("upsert meeting failed", zap.String("meeting", req.ID), zap.Error(err))
		response.Internal(c, "failed to save meeting")
		return
	}
	h.cache.Invalidate(c.Request.Context())
	response.Created(c, m)
}

// RegisterRoutes mounts the meeting endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/meetings", h.List)
	rg.GET("/meetings/index", h.Index)
	rg.GET("/meetings/:id", h.Get)
	rg.POST("/meetings", h.Upsert)
}
