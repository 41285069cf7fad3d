package models

import (
	"encoding/json"
	"time"
)

// Account is a linked Google account whose calendars are aggregated.
type Account struct {
	ID          string          `json:"id"` // account email
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name,omitempty"`
	Tokens      json.RawMessage `json:"-"` // OAuth token payload, never serialized out
}

// SocialToken is a stored social network credential. One row per provider.
type SocialToken struct {
	Provider    SocialPlatform `json:"provider"`
	AccessToken string         `json:"-"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	ExternalID  string         `json:"external_id,omitempty"` // member id / user id
}
