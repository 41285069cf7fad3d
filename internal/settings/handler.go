package settings

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/response"
)

// Handler handles settings HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a settings handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Get handles GET /settings.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.repo.Get(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load settings")
		return
	}
	response.OK(c, s)
}

// Save handles POST /settings. The body is the full settings object; missing
// numeric fields fall back to the defaults rather than zero.
func (h *Handler) Save(c *gin.Context) {
	s := models.DefaultSettings()
	if err := c.ShouldBindJSON(&s); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if s.MinutesBeforeJoin < 0 || s.WindowDays <= 0 || s.PollSeconds < 10 {
		response.BadRequest(c, "invalid settings values")
		return
	}
	if err := h.repo.Save(c.Request.Context(), s); err != nil {
		h.logger.Error("save settings failed", zap.Error(err))
		response.Internal(c, "failed to save settings")
		return
	}
	response.OK(c, s)
}

// RegisterRoutes mounts the settings endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.Get)
	rg.POST("/settings", h.Save)
}
