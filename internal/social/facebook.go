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

const (
	defaultFacebookAuthURL = "https://www.facebook.com/v18.0/dialog/oauth"
	defaultFacebookAPIBase = "https://graph.facebook.com/v18.0"
	facebookScopes         = "public_profile,pages_show_list,pages_read_engagement,pages_manage_posts"
)

// Facebook calls the Facebook OAuth and Graph APIs.
type Facebook struct {
	cfg         config.FacebookConfig
	redirectURI string
	http        *httpx.Client

	AuthBase string
	APIBase  string
}

// NewFacebook creates the Facebook client.
func NewFacebook(cfg config.FacebookConfig, redirectURI string) *Facebook {
	return &Facebook{
		cfg:         cfg,
		redirectURI: redirectURI,
		http:        httpx.New(httpx.DefaultAttempts, httpx.DefaultTimeout),
		AuthBase:    defaultFacebookAuthURL,
		APIBase:     defaultFacebookAPIBase,
	}
}

// AuthURL builds the consent page URL.
func (f *Facebook) AuthURL(state string) string {
	q := url.Values{
		"client_id":     {f.cfg.AppID},
		"redirect_uri":  {f.redirectURI},
		"response_type": {"code"},
		"scope":         {facebookScopes},
		"state":         {state},
	}
	return f.AuthBase + "?" + q.Encode()
}

// Exchange trades an authorization code for a user access token.
func (f *Facebook) Exchange(ctx context.Context, code string) (string, time.Time, error) {
	q := url.Values{
		"client_id":     {f.cfg.AppID},
		"client_secret": {f.cfg.AppSecret},
		"redirect_uri":  {f.redirectURI},
		"code":          {code},
	}
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := f.getJSON(ctx, f.APIBase+"/oauth/access_token?"+q.Encode(), &payload); err != nil {
		return "", time.Time{}, err
	}
	var expiry time.Time
	if payload.ExpiresIn > 0 {
		expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return payload.AccessToken, expiry, nil
}

// UserID resolves the token holder's Facebook user id.
func (f *Facebook) UserID(ctx context.Context, accessToken string) (string, error) {
	var me struct {
		ID string `json:"id"`
	}
	q := url.Values{"access_token": {accessToken}, "fields": {"id"}}
	if err := f.getJSON(ctx, f.APIBase+"/me?"+q.Encode(), &me); err != nil {
		return "", err
	}
	if me.ID == "" {
		return "", fmt.Errorf("facebook me: no id")
	}
	return me.ID, nil
}

// Page is one page the user manages.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"-"`
}

// Pages lists the pages the user manages, with their page tokens.
func (f *Facebook) Pages(ctx context.Context, accessToken string) ([]Page, error) {
	var payload struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	q := url.Values{"access_token": {accessToken}}
	if err := f.getJSON(ctx, f.APIBase+"/me/accounts?"+q.Encode(), &payload); err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(payload.Data))
	for _, p := range payload.Data {
		pages = append(pages, Page{ID: p.ID, Name: p.Name, AccessToken: p.AccessToken})
	}
	return pages, nil
}

// PostToPage publishes to a page's feed using the page token resolved from
// the user token.
func (f *Facebook) PostToPage(ctx context.Context, userToken, pageID, message string) error {
	pages, err := f.Pages(ctx, userToken)
	if err != nil {
		return fmt.Errorf("resolve page token: %w", err)
	}
	var pageToken string
	for _, p := range pages {
		if p.ID == pageID {
			pageToken = p.AccessToken
			break
		}
	}
	if pageToken == "" {
		return fmt.Errorf("page %s not managed by linked user", pageID)
	}
	return f.postFeed(ctx, pageID, pageToken, message)
}

// PostToProfile publishes to the user's own feed.
func (f *Facebook) PostToProfile(ctx context.Context, userToken, message string) error {
	return f.postFeed(ctx, "me", userToken, message)
}

func (f *Facebook) postFeed(ctx context.Context, target, token, message string) error {
	form := url.Values{"message": {message}, "access_token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.APIBase+"/"+url.PathEscape(target)+"/feed", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("facebook feed post %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func (f *Facebook) getJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := f.http.Get(ctx, rawURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("facebook API %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
