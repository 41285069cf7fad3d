package calendar

import (
	"regexp"
	"strings"

	"github.com/postmeeting/backend/internal/models"
)

var (
	urlRe   = regexp.MustCompile(`https?://[^\s<>"']+`)
	noiseRe = regexp.MustCompile(`(?i)birthday|anniversary|holiday`)

	zoomRe  = regexp.MustCompile(`(?i)zoom\.us`)
	meetRe  = regexp.MustCompile(`(?i)meet\.google\.com`)
	teamsRe = regexp.MustCompile(`(?i)teams\.(microsoft|live)\.com`)
)

// InferPlatform maps a conferencing URL to its provider.
func InferPlatform(rawURL string) models.Platform {
	switch {
	case rawURL == "":
		return models.PlatformUnknown
	case zoomRe.MatchString(rawURL):
		return models.PlatformZoom
	case meetRe.MatchString(rawURL):
		return models.PlatformMeet
	case teamsRe.MatchString(rawURL):
		return models.PlatformTeams
	default:
		return models.PlatformUnknown
	}
}

// isNoise filters calendar clutter that never carries a meeting.
func isNoise(title string) bool {
	return noiseRe.MatchString(title)
}

// firstURL extracts the first http(s) URL embedded in free text.
func firstURL(text string) string {
	return strings.TrimRight(urlRe.FindString(text), ".,;)")
}

// conferencingURL resolves an event's meeting link, preferring structured
// conference data over links scraped from text fields.
func conferencingURL(ev *gEvent) string {
	if ev.ConferenceData != nil {
		var fallback string
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.URI == "" {
				continue
			}
			if ep.EntryPointType == "video" {
				return ep.URI
			}
			if fallback == "" {
				fallback = ep.URI
			}
		}
		if fallback != "" {
			return fallback
		}
	}
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	for _, text := range []string{ev.Location, ev.Description, ev.Summary} {
		if u := firstURL(text); u != "" {
			return u
		}
	}
	return ""
}

// EventKey builds the provider-unique event id.
func EventKey(accountID, calendarID, eventID string) string {
	return accountID + ":" + calendarID + ":" + eventID
}
