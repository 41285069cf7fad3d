package accounts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postmeeting/backend/config"
)

func TestStateRoundTrip(t *testing.T) {
	state, err := SignState("secret")
	require.NoError(t, err)
	assert.NoError(t, VerifyState("secret", state))
	assert.Error(t, VerifyState("other-secret", state))
	assert.Error(t, VerifyState("secret", "garbage"))
}

func TestAuthURL(t *testing.T) {
	g := NewGoogleOAuth(config.GoogleConfig{ClientID: "cid"}, "http://app/cb")
	u, err := url.Parse(g.AuthURL("st"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "http://app/cb", q.Get("redirect_uri"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "st", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "calendar.readonly")
}

func TestExchangeAndRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			assert.Equal(t, "the-code", r.Form.Get("code"))
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "at-1", "refresh_token": "rt-1",
				"token_type": "Bearer", "expires_in": 3600,
			})
		case "refresh_token":
			assert.Equal(t, "rt-1", r.Form.Get("refresh_token"))
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "at-2", "token_type": "Bearer", "expires_in": 3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	g := NewGoogleOAuth(config.GoogleConfig{ClientID: "cid", ClientSecret: "cs"}, "http://app/cb")
	g.TokenURL = srv.URL

	ts, err := g.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at-1", ts.AccessToken)
	assert.Equal(t, "rt-1", ts.RefreshToken)
	assert.False(t, ts.Expired())

	refreshed, err := g.Refresh(context.Background(), ts.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "at-2", refreshed.AccessToken)
	// Google omits the refresh token on refresh; the old one is carried over.
	assert.Equal(t, "rt-1", refreshed.RefreshToken)
}

func TestUserinfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"email": "ana@example.com", "name": "Ana"})
	}))
	defer srv.Close()

	g := NewGoogleOAuth(config.GoogleConfig{}, "")
	g.UserinfoURL = srv.URL

	info, err := g.Userinfo(context.Background(), "at")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", info.Email)
	assert.Equal(t, "Ana", info.Name)
}

func TestTokenSetExpired(t *testing.T) {
	assert.False(t, TokenSet{}.Expired(), "zero expiry means non-expiring")
	assert.True(t, TokenSet{Expiry: time.Now().Add(-time.Minute)}.Expired())
	assert.True(t, TokenSet{Expiry: time.Now().Add(10 * time.Second)}.Expired(), "inside safety margin")
	assert.False(t, TokenSet{Expiry: time.Now().Add(time.Hour)}.Expired())
}
