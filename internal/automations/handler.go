package automations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/response"
)

// Handler handles automation HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an automation handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /automations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list automations")
		return
	}
	if list == nil {
		list = []models.Automation{}
	}
	response.OK(c, list)
}

// Replace handles PUT /automations: the body is the full new set.
func (h *Handler) Replace(c *gin.Context) {
	var autos []models.Automation
	if err := c.ShouldBindJSON(&autos); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	for i := range autos {
		if autos[i].ID == "" {
			autos[i].ID = uuid.New().String()
		}
		switch autos[i].Platform {
		case models.SocialLinkedIn, models.SocialFacebook:
		default:
			response.BadRequest(c, "unknown platform: "+string(autos[i].Platform))
			return
		}
	}
	if err := h.repo.ReplaceAll(c.Request.Context(), autos); err != nil {
		h.logger.Error("replace automations failed", zap.Error(err))
		response.Internal(c, "failed to save automations")
		return
	}
	response.OK(c, autos)
}

// RegisterRoutes mounts the automation endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/automations", h.List)
	rg.PUT("/automations", h.Replace)
}
