package social

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/accounts"
	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/response"
)

// Handler handles social linking and lookup HTTP endpoints.
type Handler struct {
	repo        *Repository
	linkedin    *LinkedIn
	facebook    *Facebook
	stateSecret string
	appRedirect string
	logger      *zap.Logger
}

// NewHandler creates a social handler.
func NewHandler(repo *Repository, li *LinkedIn, fb *Facebook, stateSecret, appRedirect string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:        repo,
		linkedin:    li,
		facebook:    fb,
		stateSecret: stateSecret,
		appRedirect: appRedirect,
		logger:      logger,
	}
}

// StartLinkedIn handles GET /oauth/linkedin.
func (h *Handler) StartLinkedIn(c *gin.Context) {
	state, err := accounts.SignState(h.stateSecret)
	if err != nil {
		response.Internal(c, "failed to start oauth")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.linkedin.AuthURL(state))
}

// CallbackLinkedIn handles GET /oauth/linkedin/callback.
func (h *Handler) CallbackLinkedIn(c *gin.Context) {
	if err := accounts.VerifyState(h.stateSecret, c.Query("state")); err != nil {
		response.BadRequest(c, "invalid oauth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		response.BadRequest(c, "missing code")
		return
	}
	ctx := c.Request.Context()

	token, expiry, err := h.linkedin.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("linkedin exchange failed", zap.Error(err))
		response.Internal(c, "token exchange failed")
		return
	}
	memberID, err := h.linkedin.MemberID(ctx, token)
	if err != nil {
		h.logger.Error("linkedin member lookup failed", zap.Error(err))
		response.Internal(c, "member lookup failed")
		return
	}
	if err := h.repo.Save(ctx, &models.SocialToken{
		Provider:    models.SocialLinkedIn,
		AccessToken: token,
		ExpiresAt:   &expiry,
		ExternalID:  memberID,
	}); err != nil {
		response.Internal(c, "failed to store token")
		return
	}
	h.logger.Info("linkedin linked", zap.String("member", memberID))
	c.Redirect(http.StatusTemporaryRedirect, h.appRedirect)
}

// UnlinkLinkedIn handles DELETE /oauth/linkedin.
func (h *Handler) UnlinkLinkedIn(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), models.SocialLinkedIn); err != nil {
		response.Internal(c, "failed to unlink")
		return
	}
	response.NoContent(c)
}

// StartFacebook handles GET /oauth/facebook.
func (h *Handler) StartFacebook(c *gin.Context) {
	state, err := accounts.SignState(h.stateSecret)
	if err != nil {
		response.Internal(c, "failed to start oauth")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.facebook.AuthURL(state))
}

// CallbackFacebook handles GET /oauth/facebook/callback.
func (h *Handler) CallbackFacebook(c *gin.Context) {
	if err := accounts.VerifyState(h.stateSecret, c.Query("state")); err != nil {
		response.BadRequest(c, "invalid oauth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		response.BadRequest(c, "missing code")
		return
	}
	ctx := c.Request.Context()

	token, expiry, err := h.facebook.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("facebook exchange failed", zap.Error(err))
		response.Internal(c, "token exchange failed")
		return
	}
	userID, err := h.facebook.UserID(ctx, token)
	if err != nil {
		h.logger.Error("facebook user lookup failed", zap.Error(err))
		response.Internal(c, "user lookup failed")
		return
	}
	stored := &models.SocialToken{
		Provider:    models.SocialFacebook,
		AccessToken: token,
		ExternalID:  userID,
	}
	if !expiry.IsZero() {
		stored.ExpiresAt = &expiry
	}
	if err := h.repo.Save(ctx, stored); err != nil {
		response.Internal(c, "failed to store token")
		return
	}
	h.logger.Info("facebook linked", zap.String("user", userID))
	c.Redirect(http.StatusTemporaryRedirect, h.appRedirect)
}

// UnlinkFacebook handles DELETE /oauth/facebook.
func (h *Handler) UnlinkFacebook(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), models.SocialFacebook); err != nil {
		response.Internal(c, "failed to unlink")
		return
	}
	response.NoContent(c)
}

// Status handles GET /social/status: which providers are linked.
func (h *Handler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{}
	for _, p := range []models.SocialPlatform{models.SocialLinkedIn, models.SocialFacebook} {
		token, err := h.repo.Get(ctx, p)
		if err != nil {
			response.Internal(c, "failed to load social status")
			return
		}
		entry := gin.H{"linked": token != nil}
		if token != nil {
			entry["external_id"] = token.ExternalID
			if token.ExpiresAt != nil {
				entry["expires_at"] = token.ExpiresAt
			}
		}
		status[string(p)] = entry
	}
	response.OK(c, status)
}

// Orgs handles GET /social/linkedin/orgs.
func (h *Handler) Orgs(c *gin.Context) {
	ctx := c.Request.Context()
	token, err := h.repo.Get(ctx, models.SocialLinkedIn)
	if err != nil || token == nil {
		response.BadRequest(c, "linkedin not linked")
		return
	}
	orgs, err := h.linkedin.Organizations(ctx, token.AccessToken)
	if err != nil {
		h.logger.Error("linkedin org list failed", zap.Error(err))
		response.Internal(c, "failed to list organizations")
		return
	}
	response.OK(c, orgs)
}

// Pages handles GET /social/facebook/pages.
func (h *Handler) Pages(c *gin.Context) {
	ctx := c.Request.Context()
	token, err := h.repo.Get(ctx, models.SocialFacebook)
	if err != nil || token == nil {
		response.BadRequest(c, "facebook not linked")
		return
	}
	pages, err := h.facebook.Pages(ctx, token.AccessToken)
	if err != nil {
		h.logger.Error("facebook page list failed", zap.Error(err))
		response.Internal(c, "failed to list pages")
		return
	}
	response.OK(c, pages)
}

// RegisterRoutes mounts the social endpoints.
func (h *Handler) RegisterRoutes(oauth, api *gin.RouterGroup) {
	oauth.GET("/linkedin", h.StartLinkedIn)
	oauth.GET("/linkedin/callback", h.CallbackLinkedIn)
	oauth.DELETE("/linkedin", h.UnlinkLinkedIn)
	oauth.GET("/facebook", h.StartFacebook)
	oauth.GET("/facebook/callback", h.CallbackFacebook)
	oauth.DELETE("/facebook", h.UnlinkFacebook)
	api.GET("/social/status", h.Status)
	api.GET("/social/linkedin/orgs", h.Orgs)
	api.GET("/social/facebook/pages", h.Pages)
}
