// Package generate derives follow-up content from meeting transcripts. All
// functions here are pure: no I/O, deterministic output.
package generate

import "strings"

// DefaultCTA is appended to every summary as the call-to-action.
const DefaultCTA = "DM me if you'd like a walkthrough."

// topicLimit caps the topic at a headline-friendly length.
const topicLimit = 120

// Summary is the deterministic digest of a transcript.
type Summary struct {
	Topic     string
	KeyPoints string // bullet lines joined with " \n"
	CTA       string
}

// sentences splits text on sentence terminators, trimming and dropping
// empty fragments.
func sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Summarize builds a Summary: the first sentence (truncated) becomes the
// topic, the next up to three sentences become bullet key points.
func Summarize(text string) Summary {
	s := sentences(text)
	first := text
	if len(s) > 0 {
		first = s[0]
	}
	if r := []rune(first); len(r) > topicLimit {
		first = string(r[:topicLimit])
	}
	var points []string
	for i := 1; i < len(s) && i < 4; i++ {
		points = append(points, "• "+s[i])
	}
	return Summary{
		Topic:     first,
		KeyPoints: strings.Join(points, " \n"),
		CTA:       DefaultCTA,
	}
}
