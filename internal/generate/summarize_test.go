package generate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		wantTopic  string
		wantPoints string
	}{
		{
			name:       "empty transcript",
			transcript: "",
			wantTopic:  "",
			wantPoints: "",
		},
		{
			name:       "single sentence",
			transcript: "We discussed the quarterly rollout.",
			wantTopic:  "We discussed the quarterly rollout",
			wantPoints: "",
		},
		{
			name:       "topic plus key points",
			transcript: "Kickoff for the pilot. Budget was approved. Timeline is six weeks. Risks were reviewed. This sentence is dropped.",
			wantTopic:  "Kickoff for the pilot",
			wantPoints: "• Budget was approved \n• Timeline is six weeks \n• Risks were reviewed",
		},
		{
			name:       "mixed terminators",
			transcript: "Great demo today! Any questions? Follow up next week.",
			wantTopic:  "Great demo today",
			wantPoints: "• Any questions \n• Follow up next week",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Summarize(tc.transcript)
			assert.Equal(t, tc.wantTopic, s.Topic)
			assert.Equal(t, tc.wantPoints, s.KeyPoints)
			assert.Equal(t, DefaultCTA, s.CTA)
		})
	}
}

func TestSummarizeTruncatesLongTopic(t *testing.T) {
	long := strings.Repeat("a", 200) + ". Second sentence."
	s := Summarize(long)
	assert.Len(t, s.Topic, 120)
	assert.Equal(t, strings.Repeat("a", 120), s.Topic)
}

func TestSummarizeTruncatesOnRunes(t *testing.T) {
	long := strings.Repeat("ü", 200) + ". Second sentence."
	s := Summarize(long)
	assert.Equal(t, strings.Repeat("ü", 120), s.Topic)
	assert.True(t, utf8.ValidString(s.Topic))
}

func TestSummarizeNoTerminator(t *testing.T) {
	s := Summarize("no terminator here")
	assert.Equal(t, "no terminator here", s.Topic)
	assert.Empty(t, s.KeyPoints)
}
