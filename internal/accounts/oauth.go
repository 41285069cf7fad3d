// Package accounts links Google accounts via OAuth and stores their calendar
// credentials for the aggregation loop.
package accounts

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

// Google OAuth endpoints. Overridable for tests.
const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	defaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

var calendarScopes = []string{
	"https://www.googleapis.com/auth/calendar.readonly",
	"openid",
	"email",
	"profile",
}

// TokenSet is the stored OAuth credential payload for one account.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// Expired reports whether the access token needs a refresh, with a safety
// margin for in-flight requests.
func (t TokenSet) Expired() bool {
	return !t.Expiry.IsZero() && time.Now().After(t.Expiry.Add(-30*time.Second))
}

// Userinfo is the identity claim set for a linked account.
type Userinfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleOAuth drives the authorization code flow against Google.
type GoogleOAuth struct {
	cfg         config.GoogleConfig
	redirectURI string
	http        *httpx.Client

	AuthBase    string
	TokenURL    string
	UserinfoURL string
	RevokeURL   string
}

// NewGoogleOAuth creates the OAuth client. redirectURI must match the app's
// registered callback.
func NewGoogleOAuth(cfg config.GoogleConfig, redirectURI string) *GoogleOAuth {
	return &GoogleOAuth{
		cfg:         cfg,
		redirectURI: redirectURI,
		http:        httpx.New(httpx.DefaultAttempts, httpx.DefaultTimeout),
		AuthBase:    defaultAuthURL,
		TokenURL:    defaultTokenURL,
		UserinfoURL: defaultUserinfoURL,
		RevokeURL:   defaultRevokeURL,
	}
}

// AuthURL builds the consent page URL. Offline access with forced consent so
// a refresh token is always issued.
func (g *GoogleOAuth) AuthURL(state string) string {
	q := url.Values{
		"client_id":     {g.cfg.ClientID},
		"redirect_uri":  {g.redirectURI},
		"response_type": {"code"},
		"scope":         {strings.Join(calendarScopes, " ")},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
		"state":         {state},
	}
	return g.AuthBase + "?" + q.Encode()
}

// Exchange trades an authorization code for tokens.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (TokenSet, error) {
	return g.tokenRequest(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {g.redirectURI},
		"client_id":     {g.cfg.ClientID},
		"client_secret": {g.cfg.ClientSecret},
	})
}

// Refresh obtains a fresh access token. Google omits the refresh token from
// refresh responses, so the old one is carried over.
func (g *GoogleOAuth) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	ts, err := g.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {g.cfg.ClientID},
		"client_secret": {g.cfg.ClientSecret},
	})
	if err != nil {
		return TokenSet{}, err
	}
	if ts.RefreshToken == "" {
		ts.RefreshToken = refreshToken
	}
	return ts, nil
}

func (g *GoogleOAuth) tokenRequest(ctx context.Context, form url.Values) (TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenSet{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return TokenSet{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return TokenSet{}, fmt.Errorf("google token endpoint %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return TokenSet{}, fmt.Errorf("decode token response: %w", err)
	}
	ts := TokenSet{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
	}
	if payload.ExpiresIn > 0 {
		ts.Expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return ts, nil
}

// Userinfo fetches the identity of the token holder.
func (g *GoogleOAuth) Userinfo(ctx context.Context, accessToken string) (Userinfo, error) {
	resp, err := g.http.Get(ctx, g.UserinfoURL, map[string]string{"Authorization": "Bearer " + accessToken})
	if err != nil {
		return Userinfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Userinfo{}, fmt.Errorf("google userinfo %d", resp.StatusCode)
	}
	var info Userinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Userinfo{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" {
		return Userinfo{}, fmt.Errorf("google userinfo: no email claim")
	}
	return info, nil
}

// Revoke invalidates a token on the provider side. Best effort; unlinking
// proceeds locally regardless.
func (g *GoogleOAuth) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google revoke %d", resp.StatusCode)
	}
	return nil
}
