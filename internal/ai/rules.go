package ai

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/postmeeting/backend/internal/models"
)

// Rule-based template generation, used whenever the AI path is disabled or
// fails. Deterministic by construction.

var (
	hashtagRe      = regexp.MustCompile(`#(\w{2,30})`)
	hashtagCountRe = regexp.MustCompile(`(\d+)\s*hashtags?`)
)

var hashtagWords = map[string]int{"one": 1, "two": 2, "three": 3, "four": 4, "five": 5}

var (
	linkedInHashtagPool = []string{"#Business", "#Insights", "#Leadership", "#Strategy", "#Growth"}
	facebookHashtagPool = []string{"#Update", "#Community", "#Today", "#Highlights", "#Recap"}
)

func extractHashtags(prompt string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, m := range hashtagRe.FindAllStringSubmatch(prompt, -1) {
		tag := "#" + m[1]
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// desiredHashtagCount reads "3 hashtags" or "two hashtags" from the prompt,
// capped at five.
func desiredHashtagCount(prompt string) int {
	lower := strings.ToLower(prompt)
	if m := hashtagCountRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 0 {
			return 0
		}
		if n > 5 {
			return 5
		}
		return n
	}
	for word, n := range hashtagWords {
		if strings.Contains(lower, word+" hashtag") {
			return n
		}
	}
	return 0
}

func fillHashtags(prompt string, platform models.SocialPlatform) []string {
	tags := extractHashtags(prompt)
	wanted := desiredHashtagCount(prompt)
	pool := facebookHashtagPool
	if platform == models.SocialLinkedIn {
		pool = linkedInHashtagPool
	}
	for _, candidate := range pool {
		if len(tags) >= wanted {
			break
		}
		dup := false
		for _, t := range tags {
			if t == candidate {
				dup = true
				break
			}
		}
		if !dup {
			tags = append(tags, candidate)
		}
	}
	return tags
}

func includesAny(s string, words ...string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// RulesTemplate builds a post template from a free-form prompt using tone and
// hashtag heuristics.
func RulesTemplate(prompt string, platform models.SocialPlatform) string {
	cold := includesAny(prompt, "cold")
	casual := includesAny(prompt, "casual", "friendly", "conversational", "warm")
	professional := includesAny(prompt, "professional", "formal", "polished")
	concise := includesAny(prompt, "short", "concise", "brief", "succinct")
	emoji := includesAny(prompt, "emoji", "emojis")

	// Cold tone overrides conversational asks.
	if cold {
		professional = true
	}

	tags := fillHashtags(prompt, platform)
	suffix := ""
	if len(tags) > 0 {
		suffix = " " + strings.Join(tags, " ")
	}

	if platform == models.SocialLinkedIn {
		var body string
		switch {
		case concise || professional:
			body = "Recap: {{topic}} — {{key_points}}. {{cta}}"
		case casual:
			body = "Great chat about {{topic}} — {{key_points}}. {{cta}}"
		default:
			body = "After meeting about {{topic}}, key takeaways: {{key_points}}. {{cta}}"
		}
		if emoji && !professional {
			body += " ✨"
		}
		return strings.TrimSpace(body + suffix)
	}

	var body string
	switch {
	case concise:
		body = "{{topic}} — {{key_points}}. {{cta}}"
	case professional:
		body = "Recap: {{topic}} — {{key_points}}. {{cta}}"
	default:
		body = "Great chat today about {{topic}}! We covered {{key_points}}. {{cta}}"
	}
	body += " 💡"
	return strings.TrimSpace(body + suffix)
}
