package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/postmeeting/backend/internal/models"
)

func TestDesiredHashtagCount(t *testing.T) {
	tests := []struct {
		prompt string
		want   int
	}{
		{"add 3 hashtags", 3},
		{"add 9 hashtags", 5},
		{"use two hashtags please", 2},
		{"no tags here", 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, desiredHashtagCount(tc.prompt), tc.prompt)
	}
}

func TestFillHashtagsPrefersProvided(t *testing.T) {
	tags := fillHashtags("use #Custom and 3 hashtags", models.SocialLinkedIn)
	assert.Equal(t, []string{"#Custom", "#Business", "#Insights"}, tags)
}

func TestRulesTemplateTones(t *testing.T) {
	lkd := models.SocialLinkedIn

	professional := RulesTemplate("keep it professional", lkd)
	assert.True(t, strings.HasPrefix(professional, "Recap:"), professional)

	casual := RulesTemplate("make it casual", lkd)
	assert.True(t, strings.HasPrefix(casual, "Great chat"), casual)

	// Cold overrides casual.
	cold := RulesTemplate("cold but friendly", lkd)
	assert.True(t, strings.HasPrefix(cold, "Recap:"), cold)

	// Professional suppresses emoji on LinkedIn.
	noEmoji := RulesTemplate("professional with emojis", lkd)
	assert.NotContains(t, noEmoji, "✨")
	withEmoji := RulesTemplate("casual with emojis", lkd)
	assert.Contains(t, withEmoji, "✨")
}

func TestRulesTemplatePlaceholdersAlwaysPresent(t *testing.T) {
	for _, platform := range []models.SocialPlatform{models.SocialLinkedIn, models.SocialFacebook} {
		for _, prompt := range []string{"", "short", "casual 2 hashtags", "cold #Sales"} {
			tmpl := RulesTemplate(prompt, platform)
			assert.Contains(t, tmpl, "{{key_points}}", "%s / %q", platform, prompt)
			assert.Contains(t, tmpl, "{{cta}}", "%s / %q", platform, prompt)
		}
	}
}

func TestRulesTemplateFacebookEmoji(t *testing.T) {
	tmpl := RulesTemplate("anything", models.SocialFacebook)
	assert.Contains(t, tmpl, "💡")
}
