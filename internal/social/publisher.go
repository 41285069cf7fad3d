package social

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/internal/settings"
)

// Service routes publish requests to the right network with the stored
// credentials and the configured posting target.
type Service struct {
	repo     *Repository
	settings *settings.Repository
	linkedin *LinkedIn
	facebook *Facebook
	logger   *zap.Logger
}

// NewService creates the publishing service.
func NewService(repo *Repository, settingsRepo *settings.Repository, li *LinkedIn, fb *Facebook, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		settings: settingsRepo,
		linkedin: li,
		facebook: fb,
		logger:   logger,
	}
}

// Publish posts text to the platform using the stored token and the posting
// target from settings.
func (s *Service) Publish(ctx context.Context, platform models.SocialPlatform, text string) error {
	token, err := s.repo.Get(ctx, platform)
	if err != nil {
		return fmt.Errorf("load %s token: %w", platform, err)
	}
	if token == nil {
		return fmt.Errorf("%s not linked", platform)
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	switch platform {
	case models.SocialLinkedIn:
		author := MemberURN(token.ExternalID)
		if cfg.LinkedInTarget == "organization" && cfg.LinkedInOrgURN != "" {
			author = cfg.LinkedInOrgURN
		}
		return s.linkedin.Share(ctx, token.AccessToken, author, text)
	case models.SocialFacebook:
		if cfg.FacebookTarget == "page" && cfg.FacebookPageID != "" {
			return s.facebook.PostToPage(ctx, token.AccessToken, cfg.FacebookPageID, text)
		}
		return s.facebook.PostToProfile(ctx, token.AccessToken, text)
	default:
		return fmt.Errorf("unknown platform %q", platform)
	}
}
