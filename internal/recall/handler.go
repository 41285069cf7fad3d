package recall

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/response"
)

// ScheduleBody is the body for POST /recall/schedule.
type ScheduleBody struct {
	EventKey   string `json:"event_key" binding:"required"`
	MeetingURL string `json:"meeting_url" binding:"required"`
	Platform   string `json:"platform"`
	Start      string `json:"start"` // RFC3339, optional
	Region     string `json:"region"`
}

// Handler handles bot provider HTTP endpoints.
type Handler struct {
	client    *Client
	repo      *Repository
	scheduler *Scheduler
	logger    *zap.Logger
}

// NewHandler creates a bot provider handler.
func NewHandler(client *Client, repo *Repository, scheduler *Scheduler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: client, repo: repo, scheduler: scheduler, logger: logger}
}

// Schedule handles POST /recall/schedule.
func (h *Handler) Schedule(c *gin.Context) {
	var req ScheduleBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var start time.Time
	if req.Start != "" {
		t, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			response.BadRequest(c, "invalid start")
			return
		}
		start = t
	}

	result, err := h.scheduler.Schedule(c.Request.Context(), ScheduleRequest{
		EventKey:   req.EventKey,
		MeetingURL: req.MeetingURL,
		Platform:   models.Platform(req.Platform),
		Start:      start,
		Region:     req.Region,
	})
	if err != nil {
		h.logger.Error("schedule bot failed", zap.String("event_key", req.EventKey), zap.Error(err))
		response.Internal(c, "failed to schedule bot")
		return
	}
	if result.Created {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}

// Poll handles GET /recall/poll?botId=.
func (h *Handler) Poll(c *gin.Context) {
	botID := c.Query("botId")
	if botID == "" {
		response.BadRequest(c, "botId required")
		return
	}
	status, err := h.client.Poll(c.Request.Context(), botID, h.regionFor(c, botID))
	if err != nil {
		h.logger.Error("poll bot failed", zap.String("bot_id", botID), zap.Error(err))
		response.Internal(c, "failed to poll bot")
		return
	}
	response.OK(c, status)
}

// Tracked handles GET /recall/tracked.
func (h *Handler) Tracked(c *gin.Context) {
	bots, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list bots")
		return
	}
	if bots == nil {
		bots = []models.TrackedBot{}
	}
	response.OK(c, bots)
}

// Transcript handles GET /recall/transcript?botId=.
func (h *Handler) Transcript(c *gin.Context) {
	botID := c.Query("botId")
	if botID == "" {
		response.BadRequest(c, "botId required")
		return
	}
	text, err := h.client.Transcript(c.Request.Context(), botID, h.regionFor(c, botID))
	if errors.Is(err, ErrNotAvailable) {
		response.OK(c, gin.H{"bot_id": botID, "available": false})
		return
	}
	if err != nil {
		h.logger.Error("fetch transcript failed", zap.String("bot_id", botID), zap.Error(err))
		response.Internal(c, "failed to fetch transcript")
		return
	}
	response.OK(c, gin.H{"bot_id": botID, "available": true, "transcript": text})
}

// Participants handles GET /recall/participants?botId=.
func (h *Handler) Participants(c *gin.Context) {
	botID := c.Query("botId")
	if botID == "" {
		response.BadRequest(c, "botId required")
		return
	}
	attendees, err := h.client.Participants(c.Request.Context(), botID, h.regionFor(c, botID))
	if err != nil {
		h.logger.Error("fetch participants failed", zap.String("bot_id", botID), zap.Error(err))
		response.Internal(c, "failed to fetch participants")
		return
	}
	if attendees == nil {
		attendees = []models.Attendee{}
	}
	response.OK(c, attendees)
}

// Delete handles DELETE /recall/bot?botId=. The tracked mapping is removed
// even when the provider delete fails; a stuck provider bot times out on its
// own side and must not pin local state.
func (h *Handler) Delete(c *gin.Context) {
	botID := c.Query("botId")
	if botID == "" {
		response.BadRequest(c, "botId required")
		return
	}
	if err := h.client.DeleteBot(c.Request.Context(), botID, h.regionFor(c, botID)); err != nil {
		h.logger.Warn("provider bot delete failed", zap.String("bot_id", botID), zap.Error(err))
	}
	if err := h.repo.Delete(c.Request.Context(), botID); err != nil {
		response.Internal(c, "failed to remove bot")
		return
	}
	response.NoContent(c)
}

// regionFor resolves a request's region: explicit query param, then the
// tracked bot's stored region, then empty for the default.
func (h *Handler) regionFor(c *gin.Context, botID string) string {
	if region := c.Query("region"); region != "" {
		return region
	}
	if bot, err := h.repo.GetByBotID(c.Request.Context(), botID); err == nil && bot != nil {
		return bot.Region
	}
	return ""
}

// RegisterRoutes mounts the bot provider endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/schedule", h.Schedule)
	rg.GET("/poll", h.Poll)
	rg.GET("/tracked", h.Tracked)
	rg.GET("/transcript", h.Transcript)
	rg.GET("/participants", h.Participants)
	rg.DELETE("/bot", h.Delete)
}
