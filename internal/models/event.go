package models

import "time"

// Platform identifies the conferencing provider of a meeting link.
type Platform string

const (
	PlatformZoom    Platform = "zoom"
	PlatformMeet    Platform = "meet"
	PlatformTeams   Platform = "teams"
	PlatformUnknown Platform = "unknown"
)

// Attendee is a meeting participant.
type Attendee struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// CalendarEvent is a calendar event merged from the calendar provider and
// local state. Provider fields (title, times, attendees, URL) are replaced on
// every refresh; WantsNotetaker and RecallBotID are owned locally.
type CalendarEvent struct {
	ID              string     `json:"id"` // accountID:calendarID:eventID
	AccountID       string     `json:"account_id"`
	Title           string     `json:"title"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	Attendees       []Attendee `json:"attendees"`
	ConferencingURL string     `json:"conferencing_url,omitempty"`
	Platform        Platform   `json:"platform"`
	WantsNotetaker  bool       `json:"wants_notetaker"`
	RecallBotID     string     `json:"recall_bot_id,omitempty"`
}
