package accounts

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/response"
)

// Handler handles account linking HTTP endpoints.
type Handler struct {
	oauth       *GoogleOAuth
	repo        *Repository
	stateSecret string
	appRedirect string
	logger      *zap.Logger
}

// NewHandler creates an account handler. appRedirect is where the browser is
// sent after the OAuth round trip.
func NewHandler(oauth *GoogleOAuth, repo *Repository, stateSecret, appRedirect string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		oauth:       oauth,
		repo:        repo,
		stateSecret: stateSecret,
		appRedirect: appRedirect,
		logger:      logger,
	}
}

// Start handles GET /oauth/google: redirects to the consent page.
func (h *Handler) Start(c *gin.Context) {
	state, err := SignState(h.stateSecret)
	if err != nil {
		response.Internal(c, "failed to start oauth")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthURL(state))
}

// Callback handles GET /oauth/google/callback.
func (h *Handler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		response.BadRequest(c, "oauth denied: "+errParam)
		return
	}
	if err := VerifyState(h.stateSecret, c.Query("state")); err != nil {
		response.BadRequest(c, "invalid oauth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		response.BadRequest(c, "missing code")
		return
	}

	ctx := c.Request.Context()
	tokens, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("oauth exchange failed", zap.Error(err))
		response.Internal(c, "token exchange failed")
		return
	}
	info, err := h.oauth.Userinfo(ctx, tokens.AccessToken)
	if err != nil {
		h.logger.Error("oauth userinfo failed", zap.Error(err))
		response.Internal(c, "userinfo lookup failed")
		return
	}

	payload, err := json.Marshal(tokens)
	if err != nil {
		response.Internal(c, "failed to store tokens")
		return
	}
	account := &models.Account{
		ID:          info.Email,
		Email:       info.Email,
		DisplayName: info.Name,
		Tokens:      payload,
	}
	if err := h.repo.Upsert(ctx, account); err != nil {
		h.logger.Error("persist account failed", zap.String("account", info.Email), zap.Error(err))
		response.Internal(c, "failed to link account")
		return
	}

	h.logger.Info("account linked", zap.String("account", info.Email))
	c.Redirect(http.StatusTemporaryRedirect, h.appRedirect)
}

// List handles GET /accounts.
func (h *Handler) List(c *gin.Context) {
	accts, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list accounts")
		return
	}
	if accts == nil {
		accts = []models.Account{}
	}
	response.OK(c, accts)
}

// Delete handles DELETE /accounts/:id. Provider-side revocation is attempted
// but the local link is removed regardless of its outcome.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	account, err := h.repo.Get(ctx, id)
	if err != nil {
		response.Internal(c, "failed to load account")
		return
	}
	if account == nil {
		response.NotFound(c, "account not linked")
		return
	}

	if tokens, err := Tokens(account); err == nil {
		revoke := tokens.RefreshToken
		if revoke == "" {
			revoke = tokens.AccessToken
		}
		if revoke != "" {
			if err := h.oauth.Revoke(ctx, revoke); err != nil {
				h.logger.Warn("provider token revoke failed", zap.String("account", id), zap.Error(err))
			}
		}
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		response.Internal(c, "failed to unlink account")
		return
	}
	response.NoContent(c)
}

// RegisterRoutes mounts the account endpoints.
func (h *Handler) RegisterRoutes(oauth, api *gin.RouterGroup) {
	oauth.GET("/google", h.Start)
	oauth.GET("/google/callback", h.Callback)
	api.GET("/accounts", h.List)
	api.DELETE("/accounts/:id", h.Delete)
}
