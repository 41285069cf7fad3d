package recall

import (
	"time"

	"github.com/postmeeting/backend/internal/models"
)

// BotInfo is the provider's bot record. Only the fields the normalizers care
// about are mapped; the provider has shipped several shapes over time and
// every field here is optional.
type BotInfo struct {
	ID                  string             `json:"id"`
	StatusChanges       []StatusChange     `json:"status_changes"`
	Recordings          []RecordingInfo    `json:"recordings"`
	Transcripts         []TranscriptRef    `json:"transcripts"`
	Transcript          *TranscriptRef     `json:"transcript"`
	TranscriptAvailable bool               `json:"transcript_available"`
	ParticipantEvents   *ParticipantEvents `json:"participant_events"`
	Participants        *ParticipantEvents `json:"participants"`
}

// StatusChange is one entry in the bot's status history.
type StatusChange struct {
	Code string `json:"code"`
}

// RecordingInfo is one recording attached to a bot.
type RecordingInfo struct {
	Status            StatusRef          `json:"status"`
	MediaShortcuts    MediaShortcuts     `json:"media_shortcuts"`
	Transcripts       []TranscriptRef    `json:"transcripts"`
	Transcript        *TranscriptRef     `json:"transcript"`
	ParticipantEvents *ParticipantEvents `json:"participant_events"`
}

// StatusRef wraps a status code.
type StatusRef struct {
	Code string `json:"code"`
}

// MediaShortcuts groups quick links to a recording's derived media.
type MediaShortcuts struct {
	VideoMixed        *MediaRef          `json:"video_mixed"`
	Transcript        *MediaRef          `json:"transcript"`
	ParticipantEvents *ParticipantEvents `json:"participant_events"`
}

// MediaRef points at one piece of derived media.
type MediaRef struct {
	Status      StatusRef  `json:"status"`
	Data        *MediaData `json:"data"`
	DownloadURL string     `json:"download_url"`
}

// MediaData carries the download locations for a media artifact.
type MediaData struct {
	DownloadURL             string `json:"download_url"`
	ProviderDataDownloadURL string `json:"provider_data_download_url"`
	URL                     string `json:"url"`
	ParticipantsDownloadURL string `json:"participants_download_url"`
}

// TranscriptRef is a transcript either inline or by URL.
type TranscriptRef struct {
	Text        string `json:"text"`
	DownloadURL string `json:"download_url"`
	URL         string `json:"url"`
	FileURL     string `json:"file_url"`
}

// ParticipantEvents points at the participant roster artifact.
type ParticipantEvents struct {
	ParticipantsDownloadURL string     `json:"participants_download_url"`
	Data                    *MediaData `json:"data"`
}

// HasRecording reports whether any recording finished or produced a mixed
// video artifact.
func (b *BotInfo) HasRecording() bool {
	if b == nil {
		return false
	}
	for _, r := range b.Recordings {
		if r.Status.Code == "done" {
			return true
		}
		if vm := r.MediaShortcuts.VideoMixed; vm != nil {
			if vm.Status.Code == "done" {
				return true
			}
			if vm.Data != nil && vm.Data.DownloadURL != "" {
				return true
			}
		}
	}
	for _, s := range b.StatusChanges {
		if s.Code == "recording_done" || s.Code == "done" {
			return true
		}
	}
	return false
}

// HasTranscript reports whether a transcript artifact exists in any of the
// known places.
func (b *BotInfo) HasTranscript() bool {
	if b == nil {
		return false
	}
	if b.TranscriptAvailable || len(b.Transcripts) > 0 {
		return true
	}
	for _, r := range b.Recordings {
		if len(r.Transcripts) > 0 {
			return true
		}
		if t := r.MediaShortcuts.Transcript; t != nil {
			if t.Status.Code == "done" {
				return true
			}
			if t.Data != nil && t.Data.DownloadURL != "" {
				return true
			}
		}
	}
	return false
}

// MediaStatus normalizes the record into the canonical media flags.
func (b *BotInfo) MediaStatus(botID string) models.MediaStatus {
	return models.MediaStatus{
		BotID:         botID,
		HasRecording:  b.HasRecording(),
		HasTranscript: b.HasTranscript(),
		UpdatedAt:     time.Now().UTC(),
	}
}

// transcriptURLs collects every candidate transcript download URL referenced
// anywhere in the record, in discovery order.
func (b *BotInfo) transcriptURLs() []string {
	var urls []string
	add := func(ss ...string) {
		for _, s := range ss {
			if s != "" {
				urls = append(urls, s)
			}
		}
	}
	for _, t := range b.Transcripts {
		add(t.DownloadURL, t.URL, t.FileURL)
	}
	for _, r := range b.Recordings {
		if t := r.MediaShortcuts.Transcript; t != nil {
			if t.Data != nil {
				add(t.Data.DownloadURL, t.Data.ProviderDataDownloadURL, t.Data.URL)
			}
			add(t.DownloadURL)
		}
		if r.Transcript != nil {
			add(r.Transcript.DownloadURL, r.Transcript.URL)
		}
		for _, t := range r.Transcripts {
			add(t.DownloadURL, t.URL, t.FileURL)
		}
	}
	return urls
}

// inlineTranscript returns transcript text carried directly on the record,
// or "".
func (b *BotInfo) inlineTranscript() string {
	if len(b.Transcripts) > 0 && nonBlank(b.Transcripts[0].Text) {
		return b.Transcripts[0].Text
	}
	if b.Transcript != nil && nonBlank(b.Transcript.Text) {
		return b.Transcript.Text
	}
	for _, r := range b.Recordings {
		for _, t := range r.Transcripts {
			if nonBlank(t.Text) {
				return t.Text
			}
		}
	}
	return ""
}

// participantURLs collects candidate participant roster URLs.
func (b *BotInfo) participantURLs() []string {
	var urls []string
	add := func(s string) {
		if s != "" {
			urls = append(urls, s)
		}
	}
	for _, r := range b.Recordings {
		if pe := r.MediaShortcuts.ParticipantEvents; pe != nil {
			if pe.Data != nil {
				add(pe.Data.ParticipantsDownloadURL)
			}
			add(pe.ParticipantsDownloadURL)
		}
		if r.ParticipantEvents != nil {
			add(r.ParticipantEvents.ParticipantsDownloadURL)
		}
	}
	if b.ParticipantEvents != nil {
		add(b.ParticipantEvents.ParticipantsDownloadURL)
	}
	if b.Participants != nil {
		add(b.Participants.ParticipantsDownloadURL)
	}
	return urls
}
