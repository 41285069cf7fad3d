// Package calendar aggregates events from every linked Google account into
// the normalized CalendarEvent shape the event store merges from.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/accounts"
	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/httpx"
)

const defaultAPIBase = "https://www.googleapis.com/calendar/v3"

// maxEventsPerCalendar bounds one calendar's contribution to a refresh.
const maxEventsPerCalendar = 250

// AccountSource provides the linked accounts and persists refreshed tokens.
type AccountSource interface {
	List(ctx context.Context) ([]models.Account, error)
	UpdateTokens(ctx context.Context, id string, tokens accounts.TokenSet) error
}

// TokenRefresher renews expired access tokens.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (accounts.TokenSet, error)
}

// Window is the time range a refresh covers.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowAround builds the refresh window relative to now.
func WindowAround(now time.Time, pastDays, futureDays int) Window {
	return Window{
		From: now.AddDate(0, 0, -pastDays),
		To:   now.AddDate(0, 0, futureDays),
	}
}

// Service lists and normalizes calendar events across accounts.
type Service struct {
	source    AccountSource
	refresher TokenRefresher
	http      *httpx.Client
	logger    *zap.Logger

	APIBase string
}

// NewService creates the calendar aggregation service.
func NewService(source AccountSource, refresher TokenRefresher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:    source,
		refresher: refresher,
		http:      httpx.New(httpx.DefaultAttempts, httpx.DefaultTimeout),
		logger:    logger,
		APIBase:   defaultAPIBase,
	}
}

// Google Calendar API response shapes, limited to what normalization needs.
type gCalendarList struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type gEventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type gConferenceData struct {
	EntryPoints []struct {
		EntryPointType string `json:"entryPointType"`
		URI            string `json:"uri"`
	} `json:"entryPoints"`
}

type gEvent struct {
	ID             string           `json:"id"`
	Status         string           `json:"status"`
	Summary        string           `json:"summary"`
	Description    string           `json:"description"`
	Location       string           `json:"location"`
	HangoutLink    string           `json:"hangoutLink"`
	ConferenceData *gConferenceData `json:"conferenceData"`
	Start          gEventTime       `json:"start"`
	End            gEventTime       `json:"end"`
	Attendees      []struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"attendees"`
}

type gEventList struct {
	Items []gEvent `json:"items"`
}

// Events lists normalized events across all linked accounts for the window.
// One account failing does not hide the others; its events are just absent
// from this refresh.
func (s *Service) Events(ctx context.Context, window Window) ([]models.CalendarEvent, error) {
	accts, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var all []models.CalendarEvent
	for i := range accts {
		events, err := s.accountEvents(ctx, &accts[i], window)
		if err != nil {
			s.logger.Warn("calendar refresh failed for account",
				zap.String("account", accts[i].ID), zap.Error(err))
			continue
		}
		all = append(all, events...)
	}
	return all, nil
}

func (s *Service) accountEvents(ctx context.Context, account *models.Account, window Window) ([]models.CalendarEvent, error) {
	tokens, err := accounts.Tokens(account)
	if err != nil {
		return nil, err
	}
	if tokens.Expired() {
		if tokens.RefreshToken == "" {
			return nil, fmt.Errorf("access token expired and no refresh token")
		}
		refreshed, err := s.refresher.Refresh(ctx, tokens.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		tokens = refreshed
		if err := s.source.UpdateTokens(ctx, account.ID, tokens); err != nil {
			s.logger.Warn("persist refreshed tokens failed",
				zap.String("account", account.ID), zap.Error(err))
		}
	}

	calendars, err := s.calendarIDs(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	var out []models.CalendarEvent
	for _, calID := range calendars {
		events, err := s.calendarEvents(ctx, tokens.AccessToken, calID, window)
		if err != nil {
			s.logger.Warn("calendar list failed",
				zap.String("account", account.ID), zap.String("calendar", calID), zap.Error(err))
			continue
		}
		for i := range events {
			if ev, ok := normalize(&events[i], account.ID, calID); ok {
				out = append(out, ev)
			}
		}
	}
	return out, nil
}

func (s *Service) calendarIDs(ctx context.Context, accessToken string) ([]string, error) {
	var list gCalendarList
	if err := s.getJSON(ctx, accessToken, s.APIBase+"/users/me/calendarList", &list); err != nil {
		return nil, fmt.Errorf("calendar list: %w", err)
	}
	ids := make([]string, 0, len(list.Items))
	for _, c := range list.Items {
		if c.ID != "" {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (s *Service) calendarEvents(ctx context.Context, accessToken, calendarID string, window Window) ([]gEvent, error) {
	q := url.Values{
		"timeMin":      {window.From.UTC().Format(time.RFC3339)},
		"timeMax":      {window.To.UTC().Format(time.RFC3339)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {fmt.Sprint(maxEventsPerCalendar)},
	}
	u := s.APIBase + "/calendars/" + url.PathEscape(calendarID) + "/events?" + q.Encode()
	var list gEventList
	if err := s.getJSON(ctx, accessToken, u, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (s *Service) getJSON(ctx context.Context, accessToken, rawURL string, out any) error {
	resp, err := s.http.Get(ctx, rawURL, map[string]string{"Authorization": "Bearer " + accessToken})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google calendar %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// normalize converts a provider event, reporting false for events the system
// ignores: cancelled, all-day, and noise titles.
func normalize(ev *gEvent, accountID, calendarID string) (models.CalendarEvent, bool) {
	if ev.ID == "" || ev.Status == "cancelled" {
		return models.CalendarEvent{}, false
	}
	if ev.Start.DateTime == "" || ev.End.DateTime == "" {
		// All-day events carry a date, not a dateTime.
		return models.CalendarEvent{}, false
	}
	if isNoise(ev.Summary) {
		return models.CalendarEvent{}, false
	}

	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return models.CalendarEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return models.CalendarEvent{}, false
	}

	confURL := conferencingURL(ev)
	attendees := make([]models.Attendee, 0, len(ev.Attendees))
	for _, a := range ev.Attendees {
		if a.Email == "" && a.DisplayName == "" {
			continue
		}
		attendees = append(attendees, models.Attendee{Email: a.Email, Name: a.DisplayName})
	}

	title := ev.Summary
	if title == "" {
		title = "(untitled)"
	}
	return models.CalendarEvent{
		ID:              EventKey(accountID, calendarID, ev.ID),
		AccountID:       accountID,
		Title:           title,
		Start:           start,
		End:             end,
		Attendees:       attendees,
		ConferencingURL: confURL,
		Platform:        InferPlatform(confURL),
	}, true
}
