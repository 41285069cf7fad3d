package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/generate"
	"github.com/postmeeting/backend/internal/models"
)

// Providers reported alongside generated output.
const (
	ProviderOpenAI = "openai"
	ProviderRules  = "rules"
)

// Service fronts the AI layer with guaranteed fallback.
type Service struct {
	openai *OpenAI
	logger *zap.Logger
}

// NewService creates the AI service.
func NewService(openai *OpenAI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{openai: openai, logger: logger}
}

// Template generates a post template from a prompt. Never fails: the rules
// path is the floor.
func (s *Service) Template(ctx context.Context, prompt string, platform models.SocialPlatform) (string, string) {
	if s.openai.Enabled() {
		if tmpl, err := s.openai.Template(ctx, prompt, platform); err == nil && tmpl != "" {
			return tmpl, ProviderOpenAI
		} else if err != nil {
			s.logger.Warn("openai template failed, using rules", zap.Error(err))
		}
	}
	return RulesTemplate(prompt, platform), ProviderRules
}

// Email drafts a follow-up email from a transcript. Never fails.
func (s *Service) Email(ctx context.Context, transcript string) (models.FollowupEmail, string) {
	if s.openai.Enabled() {
		if email, err := s.openai.Email(ctx, transcript); err == nil {
			return email, ProviderOpenAI
		} else {
			s.logger.Warn("openai email failed, using rules", zap.Error(err))
		}
	}
	return generate.FollowupEmail(transcript), ProviderRules
}

// Refine produces an improved version of deterministic content, or reports
// false when the AI path yielded nothing better.
func (s *Service) Refine(ctx context.Context, transcript string, content *models.GeneratedContent) (*models.GeneratedContent, bool) {
	if !s.openai.Enabled() {
		return nil, false
	}
	email, err := s.openai.Email(ctx, transcript)
	if err != nil {
		s.logger.Warn("openai refine failed", zap.String("meeting", content.MeetingID), zap.Error(err))
		return nil, false
	}
	refined := *content
	refined.FollowupEmail = email
	return &refined, true
}
