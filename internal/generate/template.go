package generate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/postmeeting/backend/internal/models"
)

// Placeholder patterns: case-insensitive, whitespace-tolerant inside braces.
// Unknown tokens are left untouched.
var (
	reTopic     = regexp.MustCompile(`(?i){{\s*topic\s*}}`)
	reKeyPoints = regexp.MustCompile(`(?i){{\s*key_points\s*}}`)
	reCTA       = regexp.MustCompile(`(?i){{\s*cta\s*}}`)
)

// Platform default templates, used when no automation supplies one.
const (
	defaultLinkedInTemplate = "Takeaways: {{key_points}} — {{cta}}"
	defaultFacebookTemplate = "We talked about {{topic}} — {{cta}}"
)

// Render substitutes summary fields into a placeholder template.
func Render(template string, s Summary) string {
	out := reTopic.ReplaceAllLiteralString(template, s.Topic)
	out = reKeyPoints.ReplaceAllLiteralString(out, strings.ReplaceAll(s.KeyPoints, "\n", " "))
	out = reCTA.ReplaceAllLiteralString(out, s.CTA)
	return out
}

// Post renders a social post draft for a platform. An empty template falls
// back to the platform default.
func Post(transcript string, platform models.SocialPlatform, template string) string {
	if template == "" {
		if platform == models.SocialLinkedIn {
			template = defaultLinkedInTemplate
		} else {
			template = defaultFacebookTemplate
		}
	}
	return Render(template, Summarize(transcript))
}

// FollowupEmail drafts the follow-up email for a transcript.
func FollowupEmail(transcript string) models.FollowupEmail {
	s := Summarize(transcript)
	return models.FollowupEmail{
		Subject: fmt.Sprintf("Follow-up on %s", s.Topic),
		Body: "Hi there,\n\nThanks again for the great conversation today. Here's a quick recap of what we covered:\n\n" +
			s.KeyPoints +
			"\n\nNext steps:\n- I'll share any requested docs and timelines.\n- Please send over any additional questions.\n\nBest,\nYour Advisor",
	}
}

// Templates holds the per-platform templates in effect for a generation run.
type Templates struct {
	LinkedIn string
	Facebook string
}

// TemplatesFrom picks the first enabled automation template per platform.
func TemplatesFrom(automations []models.Automation) Templates {
	var t Templates
	for _, a := range automations {
		if !a.Enabled || a.Template == "" {
			continue
		}
		switch a.Platform {
		case models.SocialLinkedIn:
			if t.LinkedIn == "" {
				t.LinkedIn = a.Template
			}
		case models.SocialFacebook:
			if t.Facebook == "" {
				t.Facebook = a.Template
			}
		}
	}
	return t
}

// Content assembles the full generated content for a meeting: follow-up
// email plus one draft per social platform.
func Content(meetingID, transcript string, templates Templates) *models.GeneratedContent {
	return &models.GeneratedContent{
		MeetingID:     meetingID,
		FollowupEmail: FollowupEmail(transcript),
		Posts: []models.Post{
			{ID: uuid.New().String(), Platform: models.SocialLinkedIn, Content: Post(transcript, models.SocialLinkedIn, templates.LinkedIn)},
			{ID: uuid.New().String(), Platform: models.SocialFacebook, Content: Post(transcript, models.SocialFacebook, templates.Facebook)},
		},
	}
}
