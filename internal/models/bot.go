package models

import "time"

// Bot lifecycle statuses.
const (
	BotStatusCreated        = "created"
	BotStatusRunning        = "running"
	BotStatusMediaAvailable = "media_available"
)

// TrackedBot maps a scheduled notetaker bot to its calendar event. EventKey
// is the idempotency key: at most one tracked bot exists per event. The row
// is removed once the meeting it produced has been persisted.
type TrackedBot struct {
	BotID      string     `json:"bot_id"`
	EventKey   string     `json:"event_key"`
	MeetingURL string     `json:"meeting_url"`
	Platform   Platform   `json:"platform"`
	JoinAt     *time.Time `json:"join_at,omitempty"`
	Region     string     `json:"region,omitempty"`
	Status     string     `json:"status,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MediaStatus is the normalized bot media state from the provider.
type MediaStatus struct {
	BotID         string    `json:"bot_id"`
	HasRecording  bool      `json:"has_recording"`
	HasTranscript bool      `json:"has_transcript"`
	UpdatedAt     time.Time `json:"updated_at"`
}
