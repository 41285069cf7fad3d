package events

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/internal/recall"
	"github.com/postmeeting/backend/pkg/response"
)

// NotetakerRequest is the body for POST /events/:id/notetaker.
type NotetakerRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// Handler handles calendar event HTTP endpoints.
type Handler struct {
	repo      *Repository
	scheduler *recall.Scheduler
	bots      *recall.Repository
	client    *recall.Client
	logger    *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(repo *Repository, scheduler *recall.Scheduler, bots *recall.Repository, client *recall.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, scheduler: scheduler, bots: bots, client: client, logger: logger}
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	if list == nil {
		list = []models.CalendarEvent{}
	}
	response.OK(c, list)
}

// ToggleNotetaker handles POST /events/:id/notetaker. Enabling schedules the
// bot; a scheduling failure reverts the flag so the stored state never claims
// coverage that does not exist.
func (h *Handler) ToggleNotetaker(c *gin.Context) {
	var req NotetakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	id := c.Param("id")
	ctx := c.Request.Context()

	ev, err := h.repo.Get(ctx, id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if ev == nil {
		response.NotFound(c, "event not found")
		return
	}

	if !*req.Enabled {
		h.disable(c, ev)
		return
	}

	if ev.ConferencingURL == "" {
		response.BadRequest(c, "event has no conferencing url")
		return
	}
	if err := h.repo.SetNotetaker(ctx, id, true); err != nil {
		response.Internal(c, "failed to update event")
		return
	}

	result, err := h.scheduler.Schedule(ctx, recall.ScheduleRequest{
		EventKey:   ev.ID,
		MeetingURL: ev.ConferencingURL,
		Platform:   ev.Platform,
		Start:      ev.Start,
	})
	if err != nil {
		if revertErr := h.repo.SetNotetaker(ctx, id, false); revertErr != nil {
			h.logger.Error("revert notetaker flag failed", zap.String("event", id), zap.Error(revertErr))
		}
		h.logger.Error("schedule bot failed", zap.String("event", id), zap.Error(err))
		response.Internal(c, "failed to schedule notetaker")
		return
	}
	if result.BotID != "" {
		if err := h.repo.SetBotLink(ctx, id, result.BotID); err != nil {
			h.logger.Error("link bot failed", zap.String("event", id), zap.Error(err))
		}
		ev.RecallBotID = result.BotID
	}
	ev.WantsNotetaker = true
	response.OK(c, ev)
}

// disable turns the notetaker off: the provider bot is released best effort,
// local state is cleared regardless.
func (h *Handler) disable(c *gin.Context, ev *models.CalendarEvent) {
	ctx := c.Request.Context()
	if ev.RecallBotID != "" {
		region := ""
		if bot, err := h.bots.GetByBotID(ctx, ev.RecallBotID); err == nil && bot != nil {
			region = bot.Region
		}
		if err := h.client.DeleteBot(ctx, ev.RecallBotID, region); err != nil {
			h.logger.Warn("provider bot delete failed", zap.String("bot_id", ev.RecallBotID), zap.Error(err))
		}
		if err := h.bots.Delete(ctx, ev.RecallBotID); err != nil {
			h.logger.Warn("remove tracked bot failed", zap.String("bot_id", ev.RecallBotID), zap.Error(err))
		}
		if err := h.repo.ClearBotLink(ctx, ev.ID); err != nil {
			response.Internal(c, "failed to clear bot link")
			return
		}
	}
	if err := h.repo.SetNotetaker(ctx, ev.ID, false); err != nil {
		response.Internal(c, "failed to update event")
		return
	}
	ev.WantsNotetaker = false
	ev.RecallBotID = ""
	response.OK(c, ev)
}

// RegisterRoutes mounts the event endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.List)
	rg.POST("/events/:id/notetaker", h.ToggleNotetaker)
}
