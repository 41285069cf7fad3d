package models

// Settings is the process-wide user configuration, read at the start of each
// reconcile cycle.
type Settings struct {
	MinutesBeforeJoin int    `json:"minutes_before_join"`
	WindowDays        int    `json:"window_days"`
	PollSeconds       int    `json:"poll_seconds"`
	RecallRegion      string `json:"recall_region"`

	LinkedInTarget  string `json:"linkedin_target"` // "profile" or "organization"
	LinkedInOrgURN  string `json:"linkedin_org_urn,omitempty"`
	LinkedInOrgName string `json:"linkedin_org_name,omitempty"`

	FacebookTarget   string `json:"facebook_target"` // "page" or "profile"
	FacebookPageID   string `json:"facebook_page_id,omitempty"`
	FacebookPageName string `json:"facebook_page_name,omitempty"`
}

// DefaultSettings returns the settings used before any row is saved.
func DefaultSettings() Settings {
	return Settings{
		MinutesBeforeJoin: 5,
		WindowDays:        45,
		PollSeconds:       60,
		RecallRegion:      "us-east-1",
		LinkedInTarget:    "profile",
		FacebookTarget:    "page",
	}
}
