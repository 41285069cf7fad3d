package models

import "time"

// Meeting is the finalized record of a recorded calendar event. Identity is
// the event id; the transcript and media flags may be back-filled by later
// reconcile cycles, everything else is written once.
type Meeting struct {
	ID         string      `json:"id"` // equals EventID
	EventID    string      `json:"event_id"`
	AccountID  string      `json:"account_id,omitempty"`
	Platform   Platform    `json:"platform"`
	Title      string      `json:"title"`
	Start      time.Time   `json:"start"`
	Attendees  []Attendee  `json:"attendees"`
	Transcript string      `json:"transcript"`
	Media      MediaStatus `json:"media"`
}

// MeetingIndexEntry is the cheap dedup view of a meeting: ids and media flags
// only, no transcript payload.
type MeetingIndexEntry struct {
	ID            string `json:"id"`
	BotID         string `json:"bot_id,omitempty"`
	HasRecording  bool   `json:"has_recording"`
	HasTranscript bool   `json:"has_transcript"`
	// TranscriptStored reports whether transcript text is actually persisted,
	// as opposed to the provider merely claiming one exists.
	TranscriptStored bool `json:"transcript_stored"`
}
