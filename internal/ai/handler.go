package ai

import (
	"github.com/gin-gonic/gin"

	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/response"
)

// TemplateRequest is the body for POST /ai/generate-template.
type TemplateRequest struct {
	Prompt   string `json:"prompt" binding:"required"`
	Platform string `json:"platform" binding:"required"`
}

// EmailRequest is the body for POST /ai/generate-email.
type EmailRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

// Handler handles AI generation HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates an AI handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GenerateTemplate handles POST /ai/generate-template.
func (h *Handler) GenerateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	platform := models.SocialPlatform(req.Platform)
	switch platform {
	case models.SocialLinkedIn, models.SocialFacebook:
	default:
		response.BadRequest(c, "unknown platform: "+req.Platform)
		return
	}
	template, provider := h.service.Template(c.Request.Context(), req.Prompt, platform)
	response.OK(c, gin.H{"template": template, "provider": provider})
}

// GenerateEmail handles POST /ai/generate-email.
func (h *Handler) GenerateEmail(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email, provider := h.service.Email(c.Request.Context(), req.Transcript)
	response.OK(c, gin.H{"subject": email.Subject, "body": email.Body, "provider": provider})
}

// RegisterRoutes mounts the AI endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ai/generate-template", h.GenerateTemplate)
	rg.POST("/ai/generate-email", h.GenerateEmail)
}
