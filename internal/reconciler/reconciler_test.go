package reconciler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postmeeting/backend/config"
	"github.com/postmeeting/backend/internal/calendar"
	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/internal/recall"
)

type fakeCalendar struct {
	events []models.CalendarEvent
	err    error
}

func (f *fakeCalendar) Events(ctx context.Context, w calendar.Window) ([]models.CalendarEvent, error) {
	return f.events, f.err
}

type memEvents struct {
	mu     sync.Mutex
	events map[string]*models.CalendarEvent
}

func newMemEvents(evs ...models.CalendarEvent) *memEvents {
	m := &memEvents{events: make(map[string]*models.CalendarEvent)}
	for i := range evs {
		ev := evs[i]
		m.events[ev.ID] = &ev
	}
	return m
}

func (m *memEvents) Merge(ctx context.Context, events []models.CalendarEvent, from, to time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range events {
		fresh := events[i]
		if prev, ok := m.events[fresh.ID]; ok {
			fresh.WantsNotetaker = prev.WantsNotetaker
			fresh.RecallBotID = prev.RecallBotID
		}
		m.events[fresh.ID] = &fresh
	}
	return nil
}

func (m *memEvents) List(ctx context.Context) ([]models.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CalendarEvent, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, *ev)
	}
	return out, nil
}

func (m *memEvents) ClearBotLink(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.events[id]; ok {
		ev.RecallBotID = ""
		ev.WantsNotetaker = false
	}
	return nil
}

func (m *memEvents) BackfillBotLinks(ctx context.Context, bots []models.TrackedBot) error {
	return nil
}

type memBots struct {
	mu   sync.Mutex
	bots map[string]models.TrackedBot
}

func newMemBots(bots ...models.TrackedBot) *memBots {
	m := &memBots{bots: make(map[string]models.TrackedBot)}
	for _, b := range bots {
		m.bots[b.BotID] = b
	}
	return m
}

func (m *memBots) List(ctx context.Context) ([]models.TrackedBot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TrackedBot, 0, len(m.bots))
	for _, b := range m.bots {
		out = append(out, b)
	}
	return out, nil
}

func (m *memBots) GetByBotID(ctx context.Context, botID string) (*models.TrackedBot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bots[botID]; ok {
		return &b, nil
	}
	return nil, nil
}

func (m *memBots) Delete(ctx context.Context, botID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bots, botID)
	return nil
}

type fakeProvider struct {
	mu           sync.Mutex
	media        map[string]models.MediaStatus
	pollErr      error
	transcript   string
	trErr        error
	participants []models.Attendee
	deleteErr    error

	polls       int
	trFetches   int
	partFetches int
	deletes     []string
}

func (f *fakeProvider) Poll(ctx context.Context, botID, region string) (models.MediaStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil {
		return models.MediaStatus{}, f.pollErr
	}
	if m, ok := f.media[botID]; ok {
		return m, nil
	}
	return models.MediaStatus{BotID: botID}, nil
}

func (f *fakeProvider) Transcript(ctx context.Context, botID, region string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trFetches++
	if f.trErr != nil {
		return "", f.trErr
	}
	return f.transcript, nil
}

func (f *fakeProvider) Participants(ctx context.Context, botID, region string) ([]models.Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partFetches++
	return f.participants, nil
}

func (f *fakeProvider) DeleteBot(ctx context.Context, botID, region string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, botID)
	return f.deleteErr
}

type memMeetings struct {
	mu       sync.Mutex
	meetings map[string]*models.Meeting
	archives map[string]string
	upserts  int
	fail     bool
}

func newMemMeetings() *memMeetings {
	return &memMeetings{meetings: make(map[string]*models.Meeting), archives: make(map[string]string)}
}

func (m *memMeetings) Upsert(ctx context.Context, mt *models.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.fail {
		return errors.New("db down")
	}
	cp := *mt
	if prev, ok := m.meetings[mt.ID]; ok {
		cp.Media.HasRecording = cp.Media.HasRecording || prev.Media.HasRecording
		cp.Media.HasTranscript = cp.Media.HasTranscript || prev.Media.HasTranscript
	}
	m.meetings[mt.ID] = &cp
	return nil
}

func (m *memMeetings) Index(ctx context.Context) ([]models.MeetingIndexEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MeetingIndexEntry
	for _, mt := range m.meetings {
		out = append(out, models.MeetingIndexEntry{
			ID:               mt.ID,
			BotID:            mt.Media.BotID,
			HasRecording:     mt.Media.HasRecording,
			HasTranscript:    mt.Media.HasTranscript,
			TranscriptStored: mt.Transcript != "",
		})
	}
	return out, nil
}

func (m *memMeetings) SetArchiveKey(ctx context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[id] = key
	return nil
}

type memContents struct {
	mu       sync.Mutex
	contents map[string]*models.GeneratedContent
	creates  int
}

func newMemContents() *memContents {
	return &memContents{contents: make(map[string]*models.GeneratedContent)}
}

func (m *memContents) CreateIfAbsent(ctx context.Context, c *models.GeneratedContent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contents[c.MeetingID]; ok {
		return false, nil
	}
	m.creates++
	m.contents[c.MeetingID] = c
	return true, nil
}

type fakeAutomations struct{ list []models.Automation }

func (f *fakeAutomations) List(ctx context.Context) ([]models.Automation, error) {
	return f.list, nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	invalidates int
	seq         int64
}

func (f *fakeNotifier) Invalidate(ctx context.Context) {
	f.mu.Lock()
	f.invalidates++
	f.mu.Unlock()
}

func (f *fakeNotifier) BumpRefresh(ctx context.Context) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	seqs []int64
}

func (f *fakeBroadcaster) Broadcast(seq int64) {
	f.mu.Lock()
	f.seqs = append(f.seqs, seq)
	f.mu.Unlock()
}

type testWorld struct {
	rec      *Reconciler
	events   *memEvents
	bots     *memBots
	provider *fakeProvider
	meetings *memMeetings
	contents *memContents
	notifier *fakeNotifier
	cast     *fakeBroadcaster
}

func newTestWorld(t *testing.T, evs []models.CalendarEvent, bots []models.TrackedBot, provider *fakeProvider) *testWorld {
	t.Helper()
	w := &testWorld{
		events:   newMemEvents(evs...),
		bots:     newMemBots(bots...),
		provider: provider,
		meetings: newMemMeetings(),
		contents: newMemContents(),
		notifier: &fakeNotifier{},
		cast:     &fakeBroadcaster{},
	}
	cfg := config.ReconcilerConfig{PollSeconds: 30, WindowDays: 45, PastDays: 14}
	w.rec = New(cfg, Deps{
		Calendar:    &fakeCalendar{},
		Events:      w.events,
		Bots:        w.bots,
		Provider:    provider,
		Meetings:    w.meetings,
		Contents:    w.contents,
		Automations: &fakeAutomations{},
		Notifier:    w.notifier,
		Broadcaster: w.cast,
	}, nil)
	return w
}

func endedEvent(id, botID string) models.CalendarEvent {
	now := time.Now()
	return models.CalendarEvent{
		ID:             id,
		AccountID:      "a@example.com",
		Title:          "Quarterly review",
		Start:          now.Add(-time.Hour),
		End:            now.Add(-30 * time.Minute),
		Platform:       models.PlatformMeet,
		WantsNotetaker: true,
		RecallBotID:    botID,
	}
}

func TestCycleFinalizesEndedMeeting(t *testing.T) {
	ev := endedEvent("acc:cal:ev1", "bot-1")
	provider := &fakeProvider{
		media:      map[string]models.MediaStatus{"bot-1": {BotID: "bot-1", HasRecording: true, HasTranscript: true}},
		transcript: "We discussed pricing. Budget is set. Timeline agreed. Next call Friday.",
	}
	w := newTestWorld(t, []models.CalendarEvent{ev}, []models.TrackedBot{{BotID: "bot-1", EventKey: ev.ID}}, provider)

	w.rec.RunCycle(context.Background())

	m := w.meetings.meetings[ev.ID]
	require.NotNil(t, m)
	assert.Equal(t, "Quarterly review", m.Title)
	assert.True(t, m.Media.HasRecording)
	assert.True(t, m.Media.HasTranscript)
	assert.Contains(t, m.Transcript, "pricing")

	// Content drafted with one post per platform.
	c := w.contents.contents[ev.ID]
	require.NotNil(t, c)
	require.Len(t, c.Posts, 2)
	assert.NotNil(t, c.PostFor(models.SocialLinkedIn))
	assert.NotNil(t, c.PostFor(models.SocialFacebook))
	assert.True(t, strings.HasPrefix(c.FollowupEmail.Subject, "Follow-up on"))

	// Bot released: provider delete, tracked row gone, event link and
	// notetaker flag cleared.
	assert.Equal(t, []string{"bot-1"}, provider.deletes)
	assert.Empty(t, w.bots.bots)
	assert.Empty(t, w.events.events[ev.ID].RecallBotID)
	assert.False(t, w.events.events[ev.ID].WantsNotetaker)

	// Clients notified once.
	assert.Equal(t, 1, w.notifier.invalidates)
	assert.Equal(t, []int64{1}, w.cast.seqs)
}

func TestCycleIdempotent(t *testing.T) {
	ev := endedEvent("acc:cal:ev1", "bot-1")
	provider := &fakeProvider{
		media:      map[string]models.MediaStatus{"bot-1": {BotID: "bot-1", HasRecording: true, HasTranscript: true}},
		transcript: "Short recap.",
	}
	w := newTestWorld(t, []models.CalendarEvent{ev}, []models.TrackedBot{{BotID: "bot-1", EventKey: ev.ID}}, provider)

	for i := 0; i < 3; i++ {
		w.rec.RunCycle(context.Background())
	}

	assert.Len(t, w.meetings.meetings, 1)
	assert.Equal(t, 1, w.meetings.upserts)
	assert.Equal(t, 1, w.contents.creates)
	assert.Equal(t, 1, w.notifier.invalidates)
}

func TestCycleSkipsRunningMeeting(t *testing.T) {
	ev := endedEvent("acc:cal:ev1", "bot-1")
	ev.End = time.Now().Add(time.Hour)
	provider := &fakeProvider{media: map[string]models.MediaStatus{"bot-1": {BotID: "bot-1"}}}
	w := newTestWorld(t, []models.CalendarEvent{ev}, []models.TrackedBot{{BotID: "bot-1", EventKey: ev.ID}}, provider)

	w.rec.RunCycle(context.Background())

	assert.Empty(t, w.meetings.meetings)
	assert.Empty(t, provider.deletes)
	assert.Equal(t, 0, w.notifier.invalidates)
}

func TestCycleFinalizesEarlyOnMedia(t *testing.T) {
	// Meeting still in progress, but the recording already exists.
	ev := endedEvent("acc:cal:ev1", "bot-1")
	ev.End = time.Now().Add(time.Hour)
	provider := &fakeProvider{
		media:      map[string]models.MediaStatus{"bot-1": {BotID: "bot-1", HasRecording: true}},
		trErr:      recall.ErrNotAvailable,
		transcript: "",
	}
	w := newTestWorld(t, []models.CalendarEvent{ev}, []models.TrackedBot{{BotID: "bot-1", EventKey: ev.ID}}, provider)

	w.rec.RunCycle(context.Background())

	m := w.meetings.meetings[ev.ID]
	require.NotNil(t, m)
	assert.True(t, m.Media.HasRecording)
	assert.Empty(t, m.Transcript)
}

func TestTranscriptBackfill(t *testing.T) {
	// First cycle finalizes with no transcript; a later cycle sees the
	// provider claim a transcript and re-saves it, without re-drafting
	// content.
	ev := endedEvent("acc:cal:ev1", "bot-1")
	provider := &fakeProvider{
		media: map[string]models.MediaStatus{"bot-1": {BotID: "bot-1", HasRecording: true}},
		trErr: recall.ErrNotAvailable,
	}
	w := newTestWorld(t, []models.CalendarEvent{ev}, []models.TrackedBot{{BotID: "bot-1", EventKey: ev.ID}}, provider)

	w.rec.RunCycle(context.Background())
	require.Empty(t, w.meetings.meetings[ev.ID].Transcript)

	// Re-link the bot the way a stale event row would still carry it, and
	// let the transcript appear upstream.
	w.events.events[ev.ID].RecallBotID = "bot-1"
	provider.mu.Lock()
	provider.media["bot-1"] = models.MediaStatus{BotID: "bot-1", HasRecording: true, HasTranscript: true}
	provider.trErr = nil
	provider.transcript = "Full transcript text."
	provider.mu.Unlock()

	w.rec.RunCycle(context.Background())

	m := w.meetings.meetings[ev.ID]
	assert.Equal(t, "Full transcript text.", m.Transcript)
	assert.Equal(t, 1, w.contents.creates, "content is drafted once, not per backfill")
	assert.Equal(t, 2, w.notifier.invalidates)

	// Fully saved now; further cycles leave it alone.
	w.events.events[ev.ID].RecallBotID = "bot-1"
	w.rec.RunCycle(context.Background())
	assert.Equal(t, 2, w.meetings.upserts)
}

func TestPollFailureDegradesFlags(t *testing.T) {
	ev := endedEvent("acc:cal:ev1", "bot-1")
	provider := &fakeProvider{
		pollErr:    errors.New("provider 500"),
		transcript: "Recovered transcript.",
	}
	w := newTestWorld(t, []models.CalendarEvent{ev}, []models.TrackedBot{{BotID: "bot-1", EventKey: ev.ID}}, provider)

	// Ended events finalize despite the poll failure; flags degrade to what
	// the transcript fetch proves.
	w.rec.RunCycle(context.Background())

	m := w.meetings.meetings[ev.ID]
	require.NotNil(t, m)
	assert.False(t, m.Media.HasRecording)
	assert.True(t, m.Media.HasTranscript, "successful transcript fetch implies the flag")
	assert.Equal(t, "Recovered transcript.", m.Transcript)
}

func TestUpsertFailureKeepsBot(t *testing.T) {
	ev := endedEvent("acc:cal:ev1", "bot-1")
	provider := &fakeProvider{
		media:      map[string]models.MediaStatus{"bot-1": {BotID: "bot-1", HasRecording: true}},
		transcript: "text",
	}
	w := newTestWorld(t, []models.CalendarEvent{ev}, []models.TrackedBot{{BotID: "bot-1", EventKey: ev.ID}}, provider)
	w.meetings.fail = true

	w.rec.RunCycle(context.Background())

	// Nothing finalized, bot kept for retry, no notification.
	assert.Empty(t, provider.deletes)
	assert.NotEmpty(t, w.bots.bots)
	assert.Equal(t, "bot-1", w.events.events[ev.ID].RecallBotID)
	assert.Equal(t, 0, w.notifier.invalidates)

	// Recovery on the next cycle.
	w.meetings.fail = false
	w.rec.RunCycle(context.Background())
	assert.NotNil(t, w.meetings.meetings[ev.ID])
	assert.Equal(t, 1, w.notifier.invalidates)
}

func TestProviderDeleteFailureStillReleasesLocally(t *testing.T) {
	ev := endedEvent("acc:cal:ev1", "bot-1")
	provider := &fakeProvider{
		media:      map[string]models.MediaStatus{"bot-1": {BotID: "bot-1", HasRecording: true}},
		transcript: "text",
		deleteErr:  errors.New("provider unavailable"),
	}
	w := newTestWorld(t, []models.CalendarEvent{ev}, []models.TrackedBot{{BotID: "bot-1", EventKey: ev.ID}}, provider)

	w.rec.RunCycle(context.Background())

	assert.Empty(t, w.bots.bots)
	assert.Empty(t, w.events.events[ev.ID].RecallBotID)
}

func TestParticipantsFetchedOnlyWhenMissing(t *testing.T) {
	withAttendees := endedEvent("acc:cal:ev1", "bot-1")
	withAttendees.Attendees = []models.Attendee{{Email: "known@example.com"}}
	provider := &fakeProvider{
		media:        map[string]models.MediaStatus{"bot-1": {BotID: "bot-1", HasRecording: true}},
		transcript:   "text",
		participants: []models.Attendee{{Email: "roster@example.com", Name: "Roster"}},
	}
	w := newTestWorld(t, []models.CalendarEvent{withAttendees}, []models.TrackedBot{{BotID: "bot-1", EventKey: withAttendees.ID}}, provider)

	w.rec.RunCycle(context.Background())

	assert.Equal(t, 0, provider.partFetches)
	assert.Equal(t, []models.Attendee{{Email: "known@example.com"}}, w.meetings.meetings[withAttendees.ID].Attendees)
}

func TestParticipantsBackfilledFromRoster(t *testing.T) {
	ev := endedEvent("acc:cal:ev1", "bot-1")
	provider := &fakeProvider{
		media:        map[string]models.MediaStatus{"bot-1": {BotID: "bot-1", HasRecording: true}},
		transcript:   "text",
		participants: []models.Attendee{{Email: "roster@example.com", Name: "Roster"}},
	}
	w := newTestWorld(t, []models.CalendarEvent{ev}, []models.TrackedBot{{BotID: "bot-1", EventKey: ev.ID}}, provider)

	w.rec.RunCycle(context.Background())

	assert.Equal(t, 1, provider.partFetches)
	assert.Equal(t, "roster@example.com", w.meetings.meetings[ev.ID].Attendees[0].Email)
}

func TestEventsWithoutBotsIgnored(t *testing.T) {
	ev := endedEvent("acc:cal:ev1", "")
	provider := &fakeProvider{}
	w := newTestWorld(t, []models.CalendarEvent{ev}, nil, provider)

	w.rec.RunCycle(context.Background())

	assert.Equal(t, 0, provider.polls)
	assert.Empty(t, w.meetings.meetings)
}

func TestPartialFailureIsolation(t *testing.T) {
	bad := endedEvent("acc:cal:bad", "bot-bad")
	good := endedEvent("acc:cal:good", "bot-good")
	provider := &isolatingProvider{
		fakeProvider: fakeProvider{
			media:      map[string]models.MediaStatus{"bot-good": {BotID: "bot-good", HasRecording: true}},
			transcript: "good transcript",
		},
		failBot: "bot-bad",
	}
	w := newTestWorld(t, []models.CalendarEvent{bad, good},
		[]models.TrackedBot{{BotID: "bot-bad", EventKey: bad.ID}, {BotID: "bot-good", EventKey: good.ID}},
		&provider.fakeProvider)
	w.rec.provider = provider

	w.rec.RunCycle(context.Background())

	// The good event finalizes even though every call for the bad bot fails.
	assert.NotNil(t, w.meetings.meetings[good.ID])
	assert.NotNil(t, w.meetings.meetings[bad.ID], "ended event finalizes with degraded data")
	assert.Empty(t, w.meetings.meetings[bad.ID].Transcript)
}

type isolatingProvider struct {
	fakeProvider
	failBot string
}

func (p *isolatingProvider) Poll(ctx context.Context, botID, region string) (models.MediaStatus, error) {
	if botID == p.failBot {
		return models.MediaStatus{}, errors.New("boom")
	}
	return p.fakeProvider.Poll(ctx, botID, region)
}

func (p *isolatingProvider) Transcript(ctx context.Context, botID, region string) (string, error) {
	if botID == p.failBot {
		return "", errors.New("boom")
	}
	return p.fakeProvider.Transcript(ctx, botID, region)
}
