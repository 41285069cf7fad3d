package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postmeeting/backend/config"
)

func TestLinkedInShare(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/ugcPosts", r.URL.Path)
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	li := NewLinkedIn(config.LinkedInConfig{}, "")
	li.APIBase = srv.URL

	require.NoError(t, li.Share(context.Background(), "tok", "urn:li:person:abc", "hello network"))
	assert.Equal(t, "urn:li:person:abc", got["author"])
	assert.Equal(t, "PUBLISHED", got["lifecycleState"])

	share := got["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
	assert.Equal(t, "hello network", share["shareCommentary"].(map[string]any)["text"])
}

func TestLinkedInShareTruncates(t *testing.T) {
	var sent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		share := body["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
		sent = share["shareCommentary"].(map[string]any)["text"].(string)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	li := NewLinkedIn(config.LinkedInConfig{}, "")
	li.APIBase = srv.URL

	long := strings.Repeat("a", 4000)
	require.NoError(t, li.Share(context.Background(), "tok", "urn:li:person:abc", long))
	assert.Len(t, sent, linkedInPostLimit)
}

func TestLinkedInOrganizations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/organizationalEntityAcls", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"elements": []map[string]any{
				{
					"organizationalTarget":  "urn:li:organization:1",
					"organizationalTarget~": map[string]string{"localizedName": "Acme"},
				},
				{"organizationalTarget": ""},
			},
		})
	}))
	defer srv.Close()

	li := NewLinkedIn(config.LinkedInConfig{}, "")
	li.APIBase = srv.URL

	orgs, err := li.Organizations(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "urn:li:organization:1", orgs[0].URN)
	assert.Equal(t, "Acme", orgs[0].Name)
}

func TestFacebookPostToPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user-tok", r.URL.Query().Get("access_token"))
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]string{
			{"id": "p1", "name": "My Page", "access_token": "page-tok"},
		}})
	})
	posted := false
	mux.HandleFunc("/p1/feed", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "page-tok", r.Form.Get("access_token"))
		assert.Equal(t, "hello page", r.Form.Get("message"))
		posted = true
		json.NewEncoder(w).Encode(map[string]string{"id": "p1_post"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fb := NewFacebook(config.FacebookConfig{}, "")
	fb.APIBase = srv.URL

	require.NoError(t, fb.PostToPage(context.Background(), "user-tok", "p1", "hello page"))
	assert.True(t, posted)

	err := fb.PostToPage(context.Background(), "user-tok", "unmanaged", "x")
	assert.Error(t, err)
}
