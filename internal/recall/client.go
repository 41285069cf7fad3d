// Package recall wraps the notetaker-bot provider API: bot lifecycle,
// media status polling, and transcript/participant retrieval across the
// provider's historically varying response shapes.
package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/postmeeting/backend/config"
	"github.com/postmeeting/backend/pkg/httpx"
)

// ErrNotAvailable signals a transcript that is not ready yet. It is an
// expected outcome, retried on the next poll cycle, not a failure.
var ErrNotAvailable = errors.New("transcript not available")

// ErrMissingKey is a configuration error: no API key for the target region.
var ErrMissingKey = errors.New("missing recall API key for region")

var regionHostRe = regexp.MustCompile(`^([a-z0-9-]+)\.recall\.ai$`)

// Client calls the bot provider API with region-resolved credentials.
type Client struct {
	cfg    config.RecallConfig
	http   *httpx.Client
	logger *zap.Logger
}

// NewClient creates a provider client.
func NewClient(cfg config.RecallConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   httpx.New(httpx.DefaultAttempts, httpx.DefaultTimeout),
		logger: logger,
	}
}

// baseURL returns the API base for a region, honoring the configured
// override (used against self-hosted gateways and in tests).
func (c *Client) baseURL(region string) string {
	if c.cfg.APIBase != "" {
		return c.cfg.APIBase
	}
	if region == "" {
		region = c.cfg.DefaultRegion
	}
	return fmt.Sprintf("https://%s.recall.ai/api/v1", region)
}

// regionFor extracts the region from a provider URL hostname, falling back
// to the hint and then the default region.
func (c *Client) regionFor(rawURL, hint string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if m := regionHostRe.FindStringSubmatch(u.Hostname()); m != nil {
			return m[1]
		}
	}
	if hint != "" {
		return hint
	}
	return c.cfg.DefaultRegion
}

// doJSON issues an authenticated request and decodes the JSON response into
// out. Non-2xx responses become errors carrying the body text.
func (c *Client) doJSON(ctx context.Context, method, rawURL, region string, body any, out any) error {
	key := c.cfg.KeyForRegion(c.regionFor(rawURL, region))
	if key == "" {
		return ErrMissingKey
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("recall API %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateBotRequest holds bot creation parameters.
type CreateBotRequest struct {
	MeetingURL string
	JoinAt     *time.Time
	Region     string
}

type createBotBody struct {
	MeetingURL      string          `json:"meeting_url"`
	JoinAt          *time.Time      `json:"join_at,omitempty"`
	RecordingConfig recordingConfig `json:"recording_config"`
}

type recordingConfig struct {
	Transcript transcriptProvider `json:"transcript"`
}

type transcriptProvider struct {
	Provider struct {
		RecallAIStreaming struct{} `json:"recallai_streaming"`
	} `json:"provider"`
}

// CreateBot schedules a bot to join a meeting and returns the bot id.
func (c *Client) CreateBot(ctx context.Context, req CreateBotRequest) (string, error) {
	body := createBotBody{MeetingURL: req.MeetingURL, JoinAt: req.JoinAt}
	var created struct {
		ID    string `json:"id"`
		BotID string `json:"bot_id"`
	}
	u := c.baseURL(req.Region) + "/bot"
	if err := c.doJSON(ctx, http.MethodPost, u, req.Region, body, &created); err != nil {
		return "", fmt.Errorf("create bot: %w", err)
	}
	botID := created.ID
	if botID == "" {
		botID = created.BotID
	}
	if botID == "" {
		return "", errors.New("create bot: provider returned no id")
	}
	return botID, nil
}

// GetBot fetches the raw bot record for a region.
func (c *Client) GetBot(ctx context.Context, botID, region string) (*BotInfo, error) {
	var info BotInfo
	u := c.baseURL(region) + "/bot/" + url.PathEscape(botID)
	if err := c.doJSON(ctx, http.MethodGet, u, region, nil, &info); err != nil {
		return nil, fmt.Errorf("get bot: %w", err)
	}
	return &info, nil
}

// DeleteBot releases a provider bot.
func (c *Client) DeleteBot(ctx context.Context, botID, region string) error {
	u := c.baseURL(region) + "/bot/" + url.PathEscape(botID)
	if err := c.doJSON(ctx, http.MethodDelete, u, region, nil, nil); err != nil {
		return fmt.Errorf("delete bot: %w", err)
	}
	return nil
}

// downloadText fetches a media URL as text. Presigned storage URLs are tried
// unauthenticated first; API URLs authenticated first. 401/403 falls back to
// the other scheme.
func (c *Client) downloadText(ctx context.Context, rawURL, regionHint string) (string, error) {
	key := c.cfg.KeyForRegion(c.regionFor(rawURL, regionHint))
	if key == "" {
		return "", ErrMissingKey
	}
	authed := map[string]string{"Authorization": "Token " + key}

	order := []map[string]string{authed, nil}
	if looksPresigned(rawURL) {
		order = []map[string]string{nil, authed}
	}

	var lastStatus int
	for i, headers := range order {
		resp, err := c.http.Get(ctx, rawURL, headers)
		if err != nil {
			return "", err
		}
		if resp.StatusCode == http.StatusOK {
			b, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return "", readErr
			}
			return string(b), nil
		}
		resp.Body.Close()
		lastStatus = resp.StatusCode
		if (lastStatus == http.StatusUnauthorized || lastStatus == http.StatusForbidden) && i == 0 {
			continue
		}
		break
	}
	return "", fmt.Errorf("recall download %d", lastStatus)
}

func looksPresigned(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Hostname()), "amazonaws.com") ||
		strings.Contains(strings.ToLower(u.Path), "/download/")
}
