package recall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
)

func nonBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

// shapeMatcher attempts to extract transcript text from one known JSON
// payload shape. Matchers run in order; the first non-empty result wins.
type shapeMatcher func(raw json.RawMessage) string

var transcriptShapes = []shapeMatcher{
	matchWordArray,
	matchTextField,
	matchSegments,
	matchResults,
	matchUtterances,
}

// matchWordArray handles a root array of segments/turns carrying word tokens
// (or plain per-item text).
func matchWordArray(raw json.RawMessage) string {
	var items []struct {
		Words []struct {
			Text string `json:"text"`
		} `json:"words"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	var parts []string
	for _, it := range items {
		if len(it.Words) > 0 {
			words := make([]string, 0, len(it.Words))
			for _, w := range it.Words {
				if w.Text != "" {
					words = append(words, w.Text)
				}
			}
			if len(words) > 0 {
				parts = append(parts, strings.Join(words, " "))
			}
		} else if it.Text != "" {
			parts = append(parts, it.Text)
		}
	}
	return strings.Join(parts, " ")
}

// matchTextField handles {"text": "..."}.
func matchTextField(raw json.RawMessage) string {
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return obj.Text
}

// matchSegments handles {"segments":[{"text":...}]}.
func matchSegments(raw json.RawMessage) string {
	var obj struct {
		Segments []struct {
			Text string `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	var parts []string
	for _, s := range obj.Segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// matchResults handles {"results":[{"alternatives":[{"transcript":...}]}]}
// with a per-result "text" fallback.
func matchResults(raw json.RawMessage) string {
	var obj struct {
		Results []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
			Text string `json:"text"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	var parts []string
	for _, r := range obj.Results {
		switch {
		case len(r.Alternatives) > 0 && r.Alternatives[0].Transcript != "":
			parts = append(parts, r.Alternatives[0].Transcript)
		case r.Text != "":
			parts = append(parts, r.Text)
		}
	}
	return strings.Join(parts, " ")
}

// matchUtterances handles {"utterances":[{"text":...}]}.
func matchUtterances(raw json.RawMessage) string {
	var obj struct {
		Utterances []struct {
			Text string `json:"text"`
		} `json:"utterances"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	var parts []string
	for _, u := range obj.Utterances {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}

// extractTranscript runs the shape matchers over a downloaded payload.
// Returns "" when no shape matches.
func extractTranscript(body string) string {
	raw := json.RawMessage(body)
	if !json.Valid(raw) {
		return ""
	}
	for _, match := range transcriptShapes {
		if text := match(raw); nonBlank(text) {
			return text
		}
	}
	return ""
}

// Poll fetches the bot record and returns the normalized media status.
func (c *Client) Poll(ctx context.Context, botID, region string) (models.MediaStatus, error) {
	info, err := c.GetBot(ctx, botID, region)
	if err != nil {
		return models.MediaStatus{BotID: botID}, err
	}
	return info.MediaStatus(botID), nil
}

// Transcript retrieves the transcript text for a bot, in priority order:
// inline text, discovered download URLs (JSON shapes then raw body), then
// the dedicated transcript sub-resource. Returns ErrNotAvailable when
// nothing yields non-empty text.
func (c *Client) Transcript(ctx context.Context, botID, region string) (string, error) {
	info, err := c.GetBot(ctx, botID, region)
	if err != nil {
		return "", err
	}
	return c.transcriptFrom(ctx, info, botID, region)
}

// transcriptFrom resolves transcript text from an already-fetched record.
func (c *Client) transcriptFrom(ctx context.Context, info *BotInfo, botID, region string) (string, error) {
	if text := info.inlineTranscript(); nonBlank(text) {
		return text, nil
	}

	for _, u := range info.transcriptURLs() {
		body, err := c.downloadText(ctx, u, region)
		if err != nil {
			c.logger.Debug("transcript download failed", zap.String("bot_id", botID), zap.Error(err))
			continue
		}
		if text := extractTranscript(body); nonBlank(text) {
			return text, nil
		}
		if nonBlank(body) {
			return body, nil
		}
	}

	// Last resort: dedicated sub-resource endpoint.
	if text, err := c.transcriptEndpoint(ctx, botID, region); err == nil && nonBlank(text) {
		return text, nil
	}
	return "", ErrNotAvailable
}

func (c *Client) transcriptEndpoint(ctx context.Context, botID, region string) (string, error) {
	var raw json.RawMessage
	u := c.baseURL(region) + "/bot/" + url.PathEscape(botID) + "/transcript"
	if err := c.doJSON(ctx, http.MethodGet, u, region, nil, &raw); err != nil {
		return "", err
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}
	return extractTranscript(string(raw)), nil
}
