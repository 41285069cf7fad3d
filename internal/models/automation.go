package models

// Automation is a user-configured content rule: the template it carries is
// used as the default for its platform at content-generation time.
type Automation struct {
	ID          string         `json:"id"`
	Platform    SocialPlatform `json:"platform"`
	Name        string         `json:"name"`
	Enabled     bool           `json:"enabled"`
	Template    string         `json:"template"`
	Description string         `json:"description,omitempty"`
}
