package contents

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/generate"
	"github.com/postmeeting/backend/internal/meetings"
	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/response"
)

// AutomationSource supplies the post templates in effect.
type AutomationSource interface {
	List(ctx context.Context) ([]models.Automation, error)
}

// Publisher posts content to a social network.
type Publisher interface {
	Publish(ctx context.Context, platform models.SocialPlatform, text string) error
}

// EditPostRequest is the body for PUT /contents/:meetingId/posts/:postId.
type EditPostRequest struct {
	Content string `json:"content" binding:"required"`
}

// EditEmailRequest is the body for PUT /contents/:meetingId/email.
type EditEmailRequest struct {
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// Handler handles generated content HTTP endpoints.
type Handler struct {
	repo        *Repository
	meetings    *meetings.Repository
	automations AutomationSource
	publisher   Publisher
	logger      *zap.Logger
}

// NewHandler creates a content handler.
func NewHandler(repo *Repository, meetingRepo *meetings.Repository, automations AutomationSource, publisher Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:        repo,
		meetings:    meetingRepo,
		automations: automations,
		publisher:   publisher,
		logger:      logger,
	}
}

// Get handles GET /contents/:meetingId.
func (h *Handler) Get(c *gin.Context) {
	content, err := h.repo.Get(c.Request.Context(), c.Param("meetingId"))
	if err != nil {
		response.Internal(c, "failed to load content")
		return
	}
	if content == nil {
		response.NotFound(c, "no content for meeting")
		return
	}
	response.OK(c, content)
}

// Generate handles POST /contents/:meetingId/generate. Idempotent: if content
// already exists it is returned unchanged.
func (h *Handler) Generate(c *gin.Context) {
	meetingID := c.Param("meetingId")
	ctx := c.Request.Context()

	meeting, err := h.meetings.Get(ctx, meetingID)
	if err != nil {
		response.Internal(c, "failed to load meeting")
		return
	}
	if meeting == nil {
		response.NotFound(c, "meeting not found")
		return
	}
	if meeting.Transcript == "" {
		response.Conflict(c, "meeting has no transcript yet")
		return
	}

	templates := generate.Templates{}
	if h.automations != nil {
		if autos, err := h.automations.List(ctx); err == nil {
			templates = generate.TemplatesFrom(autos)
		} else {
			h.logger.Warn("load automations failed", zap.Error(err))
		}
	}

	content := generate.Content(meetingID, meeting.Transcript, templates)
	created, err := h.repo.CreateIfAbsent(ctx, content)
	if err != nil {
		response.Internal(c, "failed to save content")
		return
	}
	if !created {
		existing, err := h.repo.Get(ctx, meetingID)
		if err != nil || existing == nil {
			response.Internal(c, "failed to load content")
			return
		}
		response.OK(c, existing)
		return
	}
	response.Created(c, content)
}

// EditPost handles PUT /contents/:meetingId/posts/:postId.
func (h *Handler) EditPost(c *gin.Context) {
	var req EditPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	content, err := h.repo.UpdatePost(c.Request.Context(), c.Param("meetingId"), c.Param("postId"), req.Content)
	if err != nil {
		response.Internal(c, "failed to update post")
		return
	}
	if content == nil {
		response.NotFound(c, "post not found")
		return
	}
	response.OK(c, content)
}

// Publish handles POST /contents/:meetingId/posts/:postId/publish: a single
// command that posts to the network and marks the draft published.
func (h *Handler) Publish(c *gin.Context) {
	meetingID := c.Param("meetingId")
	postID := c.Param("postId")
	ctx := c.Request.Context()

	content, err := h.repo.Get(ctx, meetingID)
	if err != nil {
		response.Internal(c, "failed to load content")
		return
	}
	if content == nil {
		response.NotFound(c, "no content for meeting")
		return
	}
	var post *models.Post
	for i := range content.Posts {
		if content.Posts[i].ID == postID {
			post = &content.Posts[i]
			break
		}
	}
	if post == nil {
		response.NotFound(c, "post not found")
		return
	}
	if post.PostedAt != nil {
		response.Conflict(c, "post already published")
		return
	}
	if h.publisher == nil {
		response.ServiceUnavailable(c, "social posting not configured")
		return
	}

	if err := h.publisher.Publish(ctx, post.Platform, post.Content); err != nil {
		h.logger.Error("publish failed",
			zap.String("meeting", meetingID),
			zap.String("platform", string(post.Platform)),
			zap.Error(err))
		response.Internal(c, "failed to publish post")
		return
	}

	updated, err := h.repo.MarkPosted(ctx, meetingID, *post)
	if err != nil || updated == nil {
		h.logger.Error("mark posted failed", zap.String("meeting", meetingID), zap.Error(err))
		response.Internal(c, "post published but state not saved")
		return
	}
	response.OK(c, updated)
}

// EditEmail handles PUT /contents/:meetingId/email.
func (h *Handler) EditEmail(c *gin.Context) {
	var req EditEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	meetingID := c.Param("meetingId")
	if err := h.repo.UpdateEmail(c.Request.Context(), meetingID, models.FollowupEmail{
		Subject: req.Subject,
		Body:    req.Body,
	}); err != nil {
		response.NotFound(c, "no content for meeting")
		return
	}
	content, err := h.repo.Get(c.Request.Context(), meetingID)
	if err != nil || content == nil {
		response.Internal(c, "failed to load content")
		return
	}
	response.OK(c, content)
}

// RegisterRoutes mounts the content endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/contents/:meetingId", h.Get)
	rg.POST("/contents/:meetingId/generate", h.Generate)
	rg.PUT("/contents/:meetingId/posts/:postId", h.EditPost)
	rg.POST("/contents/:meetingId/posts/:postId/publish", h.Publish)
	rg.PUT("/contents/:meetingId/email", h.EditEmail)
}
