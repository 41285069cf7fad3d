package recall

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
)

var nameEmailLineRe = regexp.MustCompile(`^(.*?)\s*<([^<>@\s]+@[^<>\s]+)>$`)

// Participants retrieves the meeting roster for a bot. The provider exports
// the roster as JSON or as a delimited text file depending on plan and age of
// the bot; both are handled. A missing roster is not an error, the result is
// just empty.
func (c *Client) Participants(ctx context.Context, botID, region string) ([]models.Attendee, error) {
	info, err := c.GetBot(ctx, botID, region)
	if err != nil {
		return nil, err
	}
	for _, u := range info.participantURLs() {
		body, err := c.downloadText(ctx, u, region)
		if err != nil {
			c.logger.Debug("participants download failed", zap.String("bot_id", botID), zap.Error(err))
			continue
		}
		if got := parseParticipants(body); len(got) > 0 {
			return got, nil
		}
	}
	return nil, nil
}

// parseParticipants extracts attendees from a roster payload and deduplicates
// them. The dedup key is the lowercased email when present, otherwise the
// lowercased name; the first occurrence wins.
func parseParticipants(body string) []models.Attendee {
	raw := parseParticipantsRaw(body)
	seen := make(map[string]struct{}, len(raw))
	out := make([]models.Attendee, 0, len(raw))
	for _, a := range raw {
		a.Email = strings.TrimSpace(a.Email)
		a.Name = strings.TrimSpace(a.Name)
		key := strings.ToLower(a.Email)
		if key == "" {
			key = strings.ToLower(a.Name)
		}
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

func parseParticipantsRaw(body string) []models.Attendee {
	if got := parseParticipantsJSON(body); got != nil {
		return got
	}
	return parseParticipantsLines(body)
}

type participantRecord struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	EmailAddr   string `json:"email_address"`
}

func (p participantRecord) attendee() models.Attendee {
	a := models.Attendee{Email: p.Email, Name: p.Name}
	if a.Email == "" {
		a.Email = p.EmailAddr
	}
	if a.Name == "" {
		a.Name = p.DisplayName
	}
	return a
}

// parseParticipantsJSON handles a root array of participant objects or an
// object wrapping one under "participants". Returns nil when the payload is
// not JSON in either shape.
func parseParticipantsJSON(body string) []models.Attendee {
	raw := json.RawMessage(body)
	if !json.Valid(raw) {
		return nil
	}

	var records []participantRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		var wrapped struct {
			Participants []participantRecord `json:"participants"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		records = wrapped.Participants
	}

	out := make([]models.Attendee, 0, len(records))
	for _, r := range records {
		out = append(out, r.attendee())
	}
	return out
}

// parseParticipantsLines handles delimited text exports. A first line carrying
// "email" or "name" column labels is treated as a CSV/TSV header; otherwise
// each line is matched as "Name <email>" or taken as a bare name.
func parseParticipantsLines(body string) []models.Attendee {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	var nonEmpty []string
	for _, l := range lines {
		if nonBlank(l) {
			nonEmpty = append(nonEmpty, strings.TrimSpace(l))
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}

	header := splitDelimited(nonEmpty[0])
	emailCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "email", "email_address":
			emailCol = i
		case "name", "display_name", "participant":
			nameCol = i
		}
	}
	if emailCol >= 0 || nameCol >= 0 {
		var out []models.Attendee
		for _, line := range nonEmpty[1:] {
			cols := splitDelimited(line)
			var a models.Attendee
			if emailCol >= 0 && emailCol < len(cols) {
				a.Email = strings.TrimSpace(cols[emailCol])
			}
			if nameCol >= 0 && nameCol < len(cols) {
				a.Name = strings.TrimSpace(cols[nameCol])
			}
			if a.Email != "" || a.Name != "" {
				out = append(out, a)
			}
		}
		return out
	}

	var out []models.Attendee
	for _, line := range nonEmpty {
		if m := nameEmailLineRe.FindStringSubmatch(line); m != nil {
			out = append(out, models.Attendee{Name: strings.TrimSpace(m[1]), Email: m[2]})
		} else {
			out = append(out, models.Attendee{Name: line})
		}
	}
	return out
}

func splitDelimited(line string) []string {
	if strings.ContainsRune(line, '\t') {
		return strings.Split(line, "\t")
	}
	return strings.Split(line, ",")
}
