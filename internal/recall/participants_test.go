package recall

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/postmeeting/backend/internal/models"
)

func TestParseParticipantsJSON(t *testing.T) {
	body := `[
		{"name":"Ana Ruiz","email":"ana@example.com"},
		{"display_name":"Bo Chen","email_address":"bo@example.com"},
		{"name":"Ana Ruiz","email":"ANA@example.com"}
	]`
	got := parseParticipants(body)
	assert.Equal(t, []models.Attendee{
		{Email: "ana@example.com", Name: "Ana Ruiz"},
		{Email: "bo@example.com", Name: "Bo Chen"},
	}, got)
}

func TestParseParticipantsWrappedJSON(t *testing.T) {
	body := `{"participants":[{"name":"Cal","email":"cal@example.com"}]}`
	got := parseParticipants(body)
	assert.Equal(t, []models.Attendee{{Email: "cal@example.com", Name: "Cal"}}, got)
}

func TestParseParticipantsCSV(t *testing.T) {
	body := "name,email\nAna Ruiz,ana@example.com\nBo Chen,bo@example.com\n,\n"
	got := parseParticipants(body)
	assert.Equal(t, []models.Attendee{
		{Email: "ana@example.com", Name: "Ana Ruiz"},
		{Email: "bo@example.com", Name: "Bo Chen"},
	}, got)
}

func TestParseParticipantsTSV(t *testing.T) {
	body := "email\tdisplay_name\r\nana@example.com\tAna Ruiz\r\n"
	got := parseParticipants(body)
	assert.Equal(t, []models.Attendee{{Email: "ana@example.com", Name: "Ana Ruiz"}}, got)
}

func TestParseParticipantsNameEmailLines(t *testing.T) {
	body := "Ana Ruiz <ana@example.com>\nJust A Name\nAna Ruiz <ana@example.com>\n"
	got := parseParticipants(body)
	assert.Equal(t, []models.Attendee{
		{Email: "ana@example.com", Name: "Ana Ruiz"},
		{Name: "Just A Name"},
	}, got)
}

func TestParseParticipantsDedupPrefersFirst(t *testing.T) {
	// Same person by name only, differing case; the first spelling survives.
	body := `[{"name":"Dee"},{"name":"DEE"},{"name":"dee"}]`
	got := parseParticipants(body)
	assert.Equal(t, []models.Attendee{{Name: "Dee"}}, got)
}

func TestParseParticipantsEmpty(t *testing.T) {
	assert.Empty(t, parseParticipants(""))
	assert.Empty(t, parseParticipants("   \n  "))
	assert.Empty(t, parseParticipants(`{"participants":[]}`))
}
