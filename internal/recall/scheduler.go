package recall

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
)

// BotStore is the persistence the scheduler needs.
type BotStore interface {
	GetByEventKey(ctx context.Context, eventKey string) (*models.TrackedBot, error)
	Upsert(ctx context.Context, b *models.TrackedBot) error
}

// BotCreator creates provider bots.
type BotCreator interface {
	CreateBot(ctx context.Context, req CreateBotRequest) (string, error)
}

// Scheduler serializes bot creation per calendar event. Concurrent schedule
// calls for the same event produce exactly one provider bot: the first caller
// creates it, later callers get the stored mapping or a pending result.
type Scheduler struct {
	store    BotStore
	provider BotCreator
	lead     time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewScheduler creates a bot scheduler. leadMinutes is how long before the
// meeting start the bot should join.
func NewScheduler(store BotStore, provider BotCreator, leadMinutes int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:    store,
		provider: provider,
		lead:     time.Duration(leadMinutes) * time.Minute,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// ScheduleRequest identifies the event a bot should cover.
type ScheduleRequest struct {
	EventKey   string
	MeetingURL string
	Platform   models.Platform
	Start      time.Time
	Region     string
}

// ScheduleResult reports the outcome of a schedule call.
type ScheduleResult struct {
	BotID   string `json:"bot_id,omitempty"`
	Status  string `json:"status"`
	Created bool   `json:"created"`
}

// Schedule ensures a bot exists for the event. Safe for concurrent use.
func (s *Scheduler) Schedule(ctx context.Context, req ScheduleRequest) (ScheduleResult, error) {
	if req.EventKey == "" || req.MeetingURL == "" {
		return ScheduleResult{}, fmt.Errorf("schedule: event key and meeting url required")
	}

	// Fast path: mapping already persisted.
	if existing, err := s.store.GetByEventKey(ctx, req.EventKey); err != nil {
		return ScheduleResult{}, err
	} else if existing != nil {
		return ScheduleResult{BotID: existing.BotID, Status: existing.Status}, nil
	}

	if !s.acquire(req.EventKey) {
		// Another caller is creating the bot for this event right now.
		return ScheduleResult{Status: "scheduling"}, nil
	}
	defer s.release(req.EventKey)

	// Re-check under the lock; the earlier holder may have persisted.
	if existing, err := s.store.GetByEventKey(ctx, req.EventKey); err != nil {
		return ScheduleResult{}, err
	} else if existing != nil {
		return ScheduleResult{BotID: existing.BotID, Status: existing.Status}, nil
	}

	var joinAt *time.Time
	if !req.Start.IsZero() {
		if t := req.Start.Add(-s.lead); t.After(time.Now()) {
			joinAt = &t
		}
	}

	botID, err := s.provider.CreateBot(ctx, CreateBotRequest{
		MeetingURL: req.MeetingURL,
		JoinAt:     joinAt,
		Region:     req.Region,
	})
	if err != nil {
		return ScheduleResult{}, err
	}

	bot := &models.TrackedBot{
		BotID:      botID,
		EventKey:   req.EventKey,
		MeetingURL: req.MeetingURL,
		Platform:   req.Platform,
		JoinAt:     joinAt,
		Region:     req.Region,
		Status:     models.BotStatusCreated,
	}
	if err := s.store.Upsert(ctx, bot); err != nil {
		// The provider bot exists but the mapping did not persist. Surface
		// the error; the next schedule call will find no mapping and create
		// a replacement, and the orphan is released by bot cleanup.
		s.logger.Error("persist bot mapping failed",
			zap.String("event_key", req.EventKey), zap.String("bot_id", botID), zap.Error(err))
		return ScheduleResult{}, err
	}

	s.logger.Info("bot scheduled",
		zap.String("event_key", req.EventKey),
		zap.String("bot_id", botID),
		zap.String("platform", string(req.Platform)))
	return ScheduleResult{BotID: botID, Status: models.BotStatusCreated, Created: true}, nil
}

func (s *Scheduler) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Scheduler) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}
