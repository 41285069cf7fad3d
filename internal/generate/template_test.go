package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postmeeting/backend/internal/models"
)

func TestRenderSubstitutesAllPlaceholders(t *testing.T) {
	s := Summary{Topic: "pricing", KeyPoints: "• a \n• b", CTA: "Reach out."}
	got := Render("T={{topic}} K={{key_points}} C={{cta}}", s)
	assert.Equal(t, "T=pricing K=• a  • b C=Reach out.", got)
}

func TestRenderTokenVariants(t *testing.T) {
	s := Summary{Topic: "x", KeyPoints: "y", CTA: "z"}
	tests := []struct {
		template string
		want     string
	}{
		{"{{ topic }}", "x"},
		{"{{TOPIC}}", "x"},
		{"{{ Key_Points }}", "y"},
		{"{{cta}} {{ CTA }}", "z z"},
		{"{{unknown}} stays", "{{unknown}} stays"},
		{"no placeholders", "no placeholders"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Render(tc.template, s), "template %q", tc.template)
	}
}

func TestPostPlatformDefaults(t *testing.T) {
	transcript := "We covered pricing. Budget is set."
	li := Post(transcript, models.SocialLinkedIn, "")
	fb := Post(transcript, models.SocialFacebook, "")
	assert.Contains(t, li, "Takeaways:")
	assert.Contains(t, li, "• Budget is set")
	assert.Contains(t, fb, "We talked about We covered pricing")
	assert.NotEqual(t, li, fb)
}

func TestPostCustomTemplateWins(t *testing.T) {
	got := Post("Topic here. Point one.", models.SocialLinkedIn, "custom {{topic}}")
	assert.Equal(t, "custom Topic here", got)
}

func TestFollowupEmail(t *testing.T) {
	email := FollowupEmail("Pilot kickoff. Budget approved. Timeline set.")
	assert.Equal(t, "Follow-up on Pilot kickoff", email.Subject)
	assert.Contains(t, email.Body, "• Budget approved")
	assert.Contains(t, email.Body, "Next steps:")
}

func TestTemplatesFrom(t *testing.T) {
	autos := []models.Automation{
		{ID: "1", Platform: models.SocialLinkedIn, Enabled: false, Template: "disabled {{topic}}"},
		{ID: "2", Platform: models.SocialLinkedIn, Enabled: true, Template: "li {{topic}}"},
		{ID: "3", Platform: models.SocialLinkedIn, Enabled: true, Template: "second li {{topic}}"},
		{ID: "4", Platform: models.SocialFacebook, Enabled: true, Template: ""},
	}
	tpl := TemplatesFrom(autos)
	assert.Equal(t, "li {{topic}}", tpl.LinkedIn, "first enabled non-empty template wins")
	assert.Empty(t, tpl.Facebook)
}

func TestContentAssemblesOnePostPerPlatform(t *testing.T) {
	c := Content("m1", "Topic. Point.", Templates{})
	require.Len(t, c.Posts, 2)
	assert.Equal(t, "m1", c.MeetingID)
	assert.NotNil(t, c.PostFor(models.SocialLinkedIn))
	assert.NotNil(t, c.PostFor(models.SocialFacebook))
	assert.NotEqual(t, c.Posts[0].ID, c.Posts[1].ID)
	assert.NotEmpty(t, c.FollowupEmail.Subject)
}
