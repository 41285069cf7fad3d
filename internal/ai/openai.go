// Package ai is the optional OpenAI layer over content generation. Every
// entry point degrades to the deterministic rules when the API is not
// configured, errors, or returns something unusable.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/postmeeting/backend/config"
	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/httpx"
)

const defaultOpenAIBase = "https://api.openai.com/v1"

// transcriptPromptLimit bounds how much transcript is sent per request.
const transcriptPromptLimit = 8000

// OpenAI calls the chat completions API.
type OpenAI struct {
	cfg  config.OpenAIConfig
	http *httpx.Client

	APIBase string
}

// NewOpenAI creates the OpenAI client. With an empty API key every call
// reports not-configured and callers fall back to rules.
func NewOpenAI(cfg config.OpenAIConfig) *OpenAI {
	return &OpenAI{
		cfg:     cfg,
		http:    httpx.New(httpx.DefaultAttempts, httpx.DefaultTimeout),
		APIBase: defaultOpenAIBase,
	}
}

// Enabled reports whether an API key is configured.
func (o *OpenAI) Enabled() bool {
	return o.cfg.APIKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

func (o *OpenAI) complete(ctx context.Context, req chatRequest) (string, error) {
	if !o.Enabled() {
		return "", fmt.Errorf("openai not configured")
	}
	if req.Model == "" {
		req.Model = o.cfg.Model
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.APIBase+"/chat/completions", strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	if o.cfg.Org != "" {
		httpReq.Header.Set("OpenAI-Organization", o.cfg.Org)
	}
	if o.cfg.Project != "" {
		httpReq.Header.Set("OpenAI-Project", o.cfg.Project)
	}

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// Template asks for a single-line placeholder template tailored to the
// platform.
func (o *OpenAI) Template(ctx context.Context, prompt string, platform models.SocialPlatform) (string, error) {
	sys := fmt.Sprintf("You generate social media post TEMPLATES that use placeholders. "+
		"Output ONLY a single-line template string using these placeholders: {{topic}}, {{key_points}}, {{cta}}. "+
		"Tailor to %s. Do not include quotes or JSON. Keep under 260 chars. "+
		"If user asks for hashtags or tone, include them.", platform)
	text, err := o.complete(ctx, chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: sys},
			{Role: "user", Content: "Make a template: " + prompt},
		},
		Temperature: 0.4,
		MaxTokens:   200,
	})
	if err != nil {
		return "", err
	}
	return strings.Trim(text, `"`), nil
}

// Email drafts a follow-up email from a transcript, requesting a JSON object
// so the response parses deterministically.
func (o *OpenAI) Email(ctx context.Context, transcript string) (models.FollowupEmail, error) {
	if len(transcript) > transcriptPromptLimit {
		transcript = transcript[:transcriptPromptLimit]
	}
	sys := "You draft concise, professional follow-up emails from a meeting transcript. " +
		"Return JSON with keys: subject (string), body (string). " +
		"The body MUST include: Recap: with 3-6 bullet points summarizing key points from the transcript, " +
		"and Next steps: with 1-3 actionable items. Keep under 180 words. " +
		"Avoid guarantees or performance claims."
	text, err := o.complete(ctx, chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: sys},
			{Role: "user", Content: "Transcript:\n" + transcript},
		},
		Temperature:    0.4,
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	})
	if err != nil {
		return models.FollowupEmail{}, err
	}
	var email models.FollowupEmail
	if err := json.Unmarshal([]byte(text), &email); err != nil {
		return models.FollowupEmail{}, fmt.Errorf("decode email json: %w", err)
	}
	if email.Subject == "" || email.Body == "" {
		return models.FollowupEmail{}, fmt.Errorf("openai email: incomplete response")
	}
	return email, nil
}
