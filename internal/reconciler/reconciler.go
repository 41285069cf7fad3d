// Package reconciler drives calendar events through their lifecycle: poll the
// bot, detect ended meetings, finalize them into Meeting records, release the
// bot, and draft follow-up content. Every external call is fault-isolated; a
// failure degrades one datum for one cycle, never aborts the cycle.
package reconciler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/postmeeting/backend/config"
	"github.com/postmeeting/backend/internal/calendar"
	"github.com/postmeeting/backend/internal/generate"
	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/internal/recall"
)

// CalendarSource refreshes the provider's view of upcoming events.
type CalendarSource interface {
	Events(ctx context.Context, window calendar.Window) ([]models.CalendarEvent, error)
}

// EventStore is the local event table.
type EventStore interface {
	Merge(ctx context.Context, events []models.CalendarEvent, windowFrom, windowTo time.Time) error
	List(ctx context.Context) ([]models.CalendarEvent, error)
	ClearBotLink(ctx context.Context, id string) error
	BackfillBotLinks(ctx context.Context, bots []models.TrackedBot) error
}

// BotStore is the tracked bot table.
type BotStore interface {
	List(ctx context.Context) ([]models.TrackedBot, error)
	GetByBotID(ctx context.Context, botID string) (*models.TrackedBot, error)
	Delete(ctx context.Context, botID string) error
}

// BotProvider is the bot provider surface the loop needs.
type BotProvider interface {
	Poll(ctx context.Context, botID, region string) (models.MediaStatus, error)
	Transcript(ctx context.Context, botID, region string) (string, error)
	Participants(ctx context.Context, botID, region string) ([]models.Attendee, error)
	DeleteBot(ctx context.Context, botID, region string) error
}

// MeetingStore persists finalized meetings.
type MeetingStore interface {
	Upsert(ctx context.Context, m *models.Meeting) error
	Index(ctx context.Context) ([]models.MeetingIndexEntry, error)
	SetArchiveKey(ctx context.Context, id, key string) error
}

// ContentStore persists drafted content.
type ContentStore interface {
	CreateIfAbsent(ctx context.Context, content *models.GeneratedContent) (bool, error)
}

// AutomationSource supplies the post templates in effect.
type AutomationSource interface {
	List(ctx context.Context) ([]models.Automation, error)
}

// SettingsSource supplies the user configuration, re-read each cycle.
type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
}

// Notifier is told when a cycle changed meeting state.
type Notifier interface {
	Invalidate(ctx context.Context)
	BumpRefresh(ctx context.Context) int64
}

// Broadcaster pushes refresh notifications to clients.
type Broadcaster interface {
	Broadcast(seq int64)
}

// Refiner enqueues background content refinement.
type Refiner interface {
	EnqueueRefine(ctx context.Context, meetingID string) error
}

// Archiver stores raw transcript payloads out of band.
type Archiver interface {
	ArchiveTranscript(ctx context.Context, botID, body string) (string, error)
}

// Reconciler runs the meeting lifecycle cycle.
type Reconciler struct {
	cfg         config.ReconcilerConfig
	calendar    CalendarSource
	events      EventStore
	bots        BotStore
	provider    BotProvider
	meetings    MeetingStore
	contents    ContentStore
	automations AutomationSource
	settings    SettingsSource
	notifier    Notifier
	broadcaster Broadcaster
	refiner     Refiner
	archiver    Archiver
	logger      *zap.Logger

	now func() time.Time
}

// Deps bundles the reconciler's collaborators. Notifier, Broadcaster,
// Refiner, Archiver, and Settings are optional.
type Deps struct {
	Calendar    CalendarSource
	Events      EventStore
	Bots        BotStore
	Provider    BotProvider
	Meetings    MeetingStore
	Contents    ContentStore
	Automations AutomationSource
	Settings    SettingsSource
	Notifier    Notifier
	Broadcaster Broadcaster
	Refiner     Refiner
	Archiver    Archiver
}

// New creates a reconciler.
func New(cfg config.ReconcilerConfig, deps Deps, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		cfg:         cfg,
		calendar:    deps.Calendar,
		events:      deps.Events,
		bots:        deps.Bots,
		provider:    deps.Provider,
		meetings:    deps.Meetings,
		contents:    deps.Contents,
		automations: deps.Automations,
		settings:    deps.Settings,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		refiner:     deps.Refiner,
		archiver:    deps.Archiver,
		logger:      logger,
		now:         time.Now,
	}
}

// RunCycle executes one reconciliation pass. It never returns an error: every
// failure inside is logged and degrades only the piece of state it touched.
func (r *Reconciler) RunCycle(ctx context.Context) {
	started := r.now()

	windowDays := r.cfg.WindowDays
	if r.settings != nil {
		if s, err := r.settings.Get(ctx); err == nil && s.WindowDays > 0 {
			windowDays = s.WindowDays
		}
	}
	window := calendar.WindowAround(started, r.cfg.PastDays, windowDays)

	// Refresh the provider view. A failed refresh means one cycle of stale
	// events, nothing else.
	if fresh, err := r.calendar.Events(ctx, window); err != nil {
		r.logger.Warn("calendar refresh failed", zap.Error(err))
	} else if err := r.events.Merge(ctx, fresh, window.From, window.To); err != nil {
		r.logger.Warn("event merge failed", zap.Error(err))
	}

	if bots, err := r.bots.List(ctx); err == nil && len(bots) > 0 {
		if err := r.events.BackfillBotLinks(ctx, bots); err != nil {
			r.logger.Warn("bot link backfill failed", zap.Error(err))
		}
	}

	events, err := r.events.List(ctx)
	if err != nil {
		r.logger.Error("load events failed", zap.Error(err))
		return
	}
	index, err := r.meetings.Index(ctx)
	if err != nil {
		r.logger.Error("load meeting index failed", zap.Error(err))
		return
	}
	saved := make(map[string]models.MeetingIndexEntry, len(index))
	for _, e := range index {
		saved[e.ID] = e
	}

	changed := false
	for i := range events {
		if r.processEvent(ctx, &events[i], saved) {
			changed = true
		}
	}

	if changed && r.notifier != nil {
		r.notifier.Invalidate(ctx)
		seq := r.notifier.BumpRefresh(ctx)
		if r.broadcaster != nil {
			r.broadcaster.Broadcast(seq)
		}
	}

	r.logger.Debug("reconcile cycle done",
		zap.Int("events", len(events)),
		zap.Bool("changed", changed),
		zap.Duration("took", r.now().Sub(started)))
}

// processEvent runs one event through the lifecycle. Reports whether meeting
// state changed.
func (r *Reconciler) processEvent(ctx context.Context, ev *models.CalendarEvent, saved map[string]models.MeetingIndexEntry) bool {
	if ev.RecallBotID == "" {
		return false
	}
	ended := !r.now().Before(ev.End)

	region := ""
	if bot, err := r.bots.GetByBotID(ctx, ev.RecallBotID); err == nil && bot != nil {
		region = bot.Region
	}

	// Poll failures leave both flags false for this cycle; the next cycle
	// retries.
	media := models.MediaStatus{BotID: ev.RecallBotID, UpdatedAt: r.now().UTC()}
	if polled, err := r.provider.Poll(ctx, ev.RecallBotID, region); err != nil {
		r.logger.Debug("bot poll failed", zap.String("bot_id", ev.RecallBotID), zap.Error(err))
	} else {
		media = polled
	}

	if !ended && !media.HasRecording && !media.HasTranscript {
		return false
	}

	entry, alreadySaved := saved[ev.ID]
	needsTranscriptUpdate := alreadySaved && !entry.TranscriptStored && media.HasTranscript
	if alreadySaved && !needsTranscriptUpdate {
		return false
	}

	transcript := ""
	if text, err := r.provider.Transcript(ctx, ev.RecallBotID, region); err == nil {
		transcript = text
		if text != "" {
			media.HasTranscript = true
		}
	} else if !errors.Is(err, recall.ErrNotAvailable) {
		r.logger.Debug("transcript fetch failed", zap.String("bot_id", ev.RecallBotID), zap.Error(err))
	}

	attendees := ev.Attendees
	if len(attendees) == 0 {
		if parts, err := r.provider.Participants(ctx, ev.RecallBotID, region); err == nil && len(parts) > 0 {
			attendees = parts
		}
	}

	meeting := &models.Meeting{
		ID:         ev.ID,
		EventID:    ev.ID,
		AccountID:  ev.AccountID,
		Platform:   ev.Platform,
		Title:      ev.Title,
		Start:      ev.Start,
		Attendees:  attendees,
		Transcript: transcript,
		Media:      media,
	}
	if err := r.meetings.Upsert(ctx, meeting); err != nil {
		r.logger.Error("meeting upsert failed", zap.String("meeting", ev.ID), zap.Error(err))
		return false
	}

	if transcript != "" && r.archiver != nil {
		if key, err := r.archiver.ArchiveTranscript(ctx, ev.RecallBotID, transcript); err != nil {
			r.logger.Warn("transcript archive failed", zap.String("bot_id", ev.RecallBotID), zap.Error(err))
		} else if key != "" {
			if err := r.meetings.SetArchiveKey(ctx, ev.ID, key); err != nil {
				r.logger.Warn("store archive key failed", zap.String("meeting", ev.ID), zap.Error(err))
			}
		}
	}

	r.releaseBot(ctx, ev)
	r.ensureContent(ctx, meeting)

	r.logger.Info("meeting finalized",
		zap.String("meeting", ev.ID),
		zap.Bool("has_recording", media.HasRecording),
		zap.Bool("has_transcript", media.HasTranscript))
	return true
}

// releaseBot stops tracking an event's bot. The local link is cleared even
// when the provider delete fails, otherwise a stuck deletion would re-poll
// the event forever.
func (r *Reconciler) releaseBot(ctx context.Context, ev *models.CalendarEvent) {
	region := ""
	if bot, err := r.bots.GetByBotID(ctx, ev.RecallBotID); err == nil && bot != nil {
		region = bot.Region
	}
	if err := r.provider.DeleteBot(ctx, ev.RecallBotID, region); err != nil {
		r.logger.Warn("provider bot delete failed", zap.String("bot_id", ev.RecallBotID), zap.Error(err))
	}
	if err := r.bots.Delete(ctx, ev.RecallBotID); err != nil {
		r.logger.Warn("remove tracked bot failed", zap.String("bot_id", ev.RecallBotID), zap.Error(err))
	}
	if err := r.events.ClearBotLink(ctx, ev.ID); err != nil {
		r.logger.Warn("clear bot link failed", zap.String("event", ev.ID), zap.Error(err))
	}
}

// ensureContent drafts follow-up content once per meeting. Existing content
// is never regenerated; the optional refine job runs only for fresh drafts.
func (r *Reconciler) ensureContent(ctx context.Context, meeting *models.Meeting) {
	templates := generate.Templates{}
	if r.automations != nil {
		if autos, err := r.automations.List(ctx); err == nil {
			templates = generate.TemplatesFrom(autos)
		} else {
			r.logger.Warn("load automations failed", zap.Error(err))
		}
	}
	content := generate.Content(meeting.ID, meeting.Transcript, templates)
	created, err := r.contents.CreateIfAbsent(ctx, content)
	if err != nil {
		r.logger.Error("save content failed", zap.String("meeting", meeting.ID), zap.Error(err))
		return
	}
	if created && meeting.Transcript != "" && r.refiner != nil {
		if err := r.refiner.EnqueueRefine(ctx, meeting.ID); err != nil {
			r.logger.Warn("enqueue refine failed", zap.String("meeting", meeting.ID), zap.Error(err))
		}
	}
}
