package models

import "time"

// SocialPlatform identifies a posting target network.
type SocialPlatform string

const (
	SocialLinkedIn SocialPlatform = "linkedin"
	SocialFacebook SocialPlatform = "facebook"
)

// FollowupEmail is the drafted follow-up email for a meeting.
type FollowupEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Post is a drafted (or published) social post. At most one post exists per
// platform within a meeting's content; re-posting replaces it.
type Post struct {
	ID       string         `json:"id"`
	Platform SocialPlatform `json:"platform"`
	Content  string         `json:"content"`
	PostedAt *time.Time     `json:"posted_at,omitempty"`
	EditedAt *time.Time     `json:"edited_at,omitempty"`
}

// GeneratedContent is the drafted follow-up content for one meeting. Created
// at most once per meeting; individual posts remain independently mutable.
type GeneratedContent struct {
	MeetingID     string        `json:"meeting_id"`
	FollowupEmail FollowupEmail `json:"followup_email"`
	Posts         []Post        `json:"posts"`
}

// PostFor returns the post for a platform, or nil.
func (c *GeneratedContent) PostFor(p SocialPlatform) *Post {
	for i := range c.Posts {
		if c.Posts[i].Platform == p {
			return &c.Posts[i]
		}
	}
	return nil
}
