package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/postmeeting/backend/config"
	"github.com/postmeeting/backend/pkg/httpx"
)

// linkedInPostLimit is the network's share commentary cap.
const linkedInPostLimit = 2999

const (
	defaultLinkedInAuthURL  = "https://www.linkedin.com/oauth/v2/authorization"
	defaultLinkedInTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultLinkedInAPIBase  = "https://api.linkedin.com"
)

var linkedInScopes = []string{"openid", "profile", "email", "w_member_social"}

// LinkedIn calls the LinkedIn OAuth and share APIs.
type LinkedIn struct {
	cfg         config.LinkedInConfig
	redirectURI string
	http        *httpx.Client

	AuthBase string
	TokenURL string
	APIBase  string
}

// NewLinkedIn creates the LinkedIn client.
func NewLinkedIn(cfg config.LinkedInConfig, redirectURI string) *LinkedIn {
	return &LinkedIn{
		cfg:         cfg,
		redirectURI: redirectURI,
		http:        httpx.New(httpx.DefaultAttempts, httpx.DefaultTimeout),
		AuthBase:    defaultLinkedInAuthURL,
		TokenURL:    defaultLinkedInTokenURL,
		APIBase:     defaultLinkedInAPIBase,
	}
}

// AuthURL builds the consent page URL.
func (l *LinkedIn) AuthURL(state string) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {l.cfg.ClientID},
		"redirect_uri":  {l.redirectURI},
		"scope":         {strings.Join(linkedInScopes, " ")},
		"state":         {state},
	}
	return l.AuthBase + "?" + q.Encode()
}

// Exchange trades an authorization code for an access token, returning the
// token and its expiry.
func (l *LinkedIn) Exchange(ctx context.Context, code string) (string, time.Time, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {l.redirectURI},
		"client_id":     {l.cfg.ClientID},
		"client_secret": {l.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := l.http.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", time.Time{}, fmt.Errorf("linkedin token endpoint %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	expiry := time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return payload.AccessToken, expiry, nil
}

// MemberID resolves the token holder's member id via the OIDC userinfo claim.
func (l *LinkedIn) MemberID(ctx context.Context, accessToken string) (string, error) {
	resp, err := l.http.Get(ctx, l.APIBase+"/v2/userinfo", map[string]string{"Authorization": "Bearer " + accessToken})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("linkedin userinfo %d", resp.StatusCode)
	}
	var info struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return "", fmt.Errorf("linkedin userinfo: no sub claim")
	}
	return info.Sub, nil
}

// Organization is one org the member can post as.
type Organization struct {
	URN  string `json:"urn"`
	Name string `json:"name"`
}

// Organizations lists orgs the member administers.
func (l *LinkedIn) Organizations(ctx context.Context, accessToken string) ([]Organization, error) {
	u := l.APIBase + "/v2/organizationalEntityAcls?q=roleAssignee&role=ADMINISTRATOR&state=APPROVED&projection=(elements*(organizationalTarget~(localizedName)))"
	resp, err := l.http.Get(ctx, u, map[string]string{
		"Authorization":             "Bearer " + accessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin org list %d", resp.StatusCode)
	}
	var payload struct {
		Elements []struct {
			OrganizationalTarget string `json:"organizationalTarget"`
			Resolved             struct {
				LocalizedName string `json:"localizedName"`
			} `json:"organizationalTarget~"`
		} `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode org list: %w", err)
	}
	orgs := make([]Organization, 0, len(payload.Elements))
	for _, e := range payload.Elements {
		if e.OrganizationalTarget == "" {
			continue
		}
		orgs = append(orgs, Organization{URN: e.OrganizationalTarget, Name: e.Resolved.LocalizedName})
	}
	return orgs, nil
}

// Share publishes a text post as the given author URN (member or org).
func (l *LinkedIn) Share(ctx context.Context, accessToken, authorURN, text string) error {
	if len(text) > linkedInPostLimit {
		text = text[:linkedInPostLimit]
	}
	body := map[string]any{
		"author":         authorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": text},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.APIBase+"/v2/ugcPosts", strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("linkedin share %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// MemberURN formats a person URN from a member id.
func MemberURN(memberID string) string {
	return "urn:li:person:" + memberID
}
