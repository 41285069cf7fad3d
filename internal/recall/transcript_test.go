package recall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postmeeting/backend/config"
)

func newTestClient(base string) *Client {
	return NewClient(config.RecallConfig{
		DefaultRegion: "us-east-1",
		APIKey:        "test-key",
		APIBase:       base,
	}, nil)
}

func TestExtractTranscriptShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "word array",
			body: `[{"words":[{"text":"hello"},{"text":"world"}]},{"words":[{"text":"again"}]}]`,
			want: "hello world again",
		},
		{
			name: "array with per item text",
			body: `[{"text":"first turn"},{"text":"second turn"}]`,
			want: "first turn second turn",
		},
		{
			name: "text field",
			body: `{"text":"plain transcript"}`,
			want: "plain transcript",
		},
		{
			name: "segments",
			body: `{"segments":[{"text":"seg one"},{"text":"seg two"}]}`,
			want: "seg one seg two",
		},
		{
			name: "results alternatives",
			body: `{"results":[{"alternatives":[{"transcript":"alt one"}]},{"alternatives":[{"transcript":"alt two"}]}]}`,
			want: "alt one alt two",
		},
		{
			name: "utterances",
			body: `{"utterances":[{"text":"utt one"},{"text":"utt two"}]}`,
			want: "utt one utt two",
		},
		{
			name: "unknown object",
			body: `{"status":"done"}`,
			want: "",
		},
		{
			name: "not json",
			body: "raw plain text transcript",
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractTranscript(tc.body))
		})
	}
}

func TestTranscriptInlineWinsWithoutDownload(t *testing.T) {
	downloads := 0
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/bot/bot-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "bot-1",
			"transcripts": []map[string]any{
				{"text": "inline text wins", "download_url": srv.URL + "/media/t1"},
			},
		})
	})
	mux.HandleFunc("/media/t1", func(w http.ResponseWriter, r *http.Request) {
		downloads++
		w.Write([]byte(`{"text":"downloaded"}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	text, err := c.Transcript(context.Background(), "bot-1", "")
	require.NoError(t, err)
	assert.Equal(t, "inline text wins", text)
	assert.Zero(t, downloads, "inline transcript must not trigger a download")
}

func TestTranscriptFromDownloadedWordArray(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/bot/bot-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "bot-2",
			"recordings": []map[string]any{
				{
					"status": map[string]string{"code": "done"},
					"media_shortcuts": map[string]any{
						"transcript": map[string]any{
							"status": map[string]string{"code": "done"},
							"data":   map[string]string{"download_url": srv.URL + "/media/words"},
						},
					},
				},
			},
		})
	})
	mux.HandleFunc("/media/words", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"words":[{"text":"we"},{"text":"shipped"}]},{"words":[{"text":"it"}]}]`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	text, err := c.Transcript(context.Background(), "bot-2", "")
	require.NoError(t, err)
	assert.Equal(t, "we shipped it", text)
}

func TestTranscriptRawBodyFallback(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/bot/bot-3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "bot-3",
			"transcripts": []map[string]any{
				{"download_url": srv.URL + "/media/raw"},
			},
		})
	})
	mux.HandleFunc("/media/raw", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Speaker 1: plain text export\nSpeaker 2: noted"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	text, err := c.Transcript(context.Background(), "bot-3", "")
	require.NoError(t, err)
	assert.Contains(t, text, "plain text export")
}

func TestTranscriptNotAvailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bot/bot-4", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "bot-4"})
	})
	mux.HandleFunc("/bot/bot-4/transcript", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Transcript(context.Background(), "bot-4", "")
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestTranscriptEndpointFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bot/bot-5", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "bot-5"})
	})
	mux.HandleFunc("/bot/bot-5/transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"utterances": []map[string]string{{"text": "endpoint text"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	text, err := c.Transcript(context.Background(), "bot-5", "")
	require.NoError(t, err)
	assert.Equal(t, "endpoint text", text)
}

func TestDownloadTextAuthFallback(t *testing.T) {
	anon := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/download/guarded", func(w http.ResponseWriter, r *http.Request) {
		// Presigned-style path that actually rejects anonymous requests.
		if r.Header.Get("Authorization") == "" {
			anon++
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("secret body"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)
	body, err := c.downloadText(context.Background(), srv.URL+"/download/guarded", "")
	require.NoError(t, err)
	assert.Equal(t, "secret body", body)
	assert.Equal(t, 1, anon, "presigned URL is tried anonymously first")
}

func TestMediaStatusNormalization(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantRecording  bool
		wantTranscript bool
	}{
		{
			name:          "recording done status change",
			body:          `{"status_changes":[{"code":"in_call_recording"},{"code":"recording_done"}]}`,
			wantRecording: true,
		},
		{
			name:          "video mixed download url",
			body:          `{"recordings":[{"media_shortcuts":{"video_mixed":{"data":{"download_url":"https://x/video"}}}}]}`,
			wantRecording: true,
		},
		{
			name:           "transcript shortcut done",
			body:           `{"recordings":[{"media_shortcuts":{"transcript":{"status":{"code":"done"}}}}]}`,
			wantTranscript: true,
		},
		{
			name:           "top level transcripts",
			body:           `{"transcripts":[{"download_url":"https://x/t"}]}`,
			wantTranscript: true,
		},
		{
			name: "nothing yet",
			body: `{"status_changes":[{"code":"joining_call"}]}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var info BotInfo
			require.NoError(t, json.Unmarshal([]byte(tc.body), &info))
			status := info.MediaStatus("b")
			assert.Equal(t, tc.wantRecording, status.HasRecording)
			assert.Equal(t, tc.wantTranscript, status.HasTranscript)
			assert.Equal(t, "b", status.BotID)
		})
	}
}
