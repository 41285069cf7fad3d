package recall

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postmeeting/backend/internal/models"
)

type memoryBotStore struct {
	mu   sync.Mutex
	bots map[string]*models.TrackedBot
}

func newMemoryBotStore() *memoryBotStore {
	return &memoryBotStore{bots: make(map[string]*models.TrackedBot)}
}

func (s *memoryBotStore) GetByEventKey(_ context.Context, key string) (*models.TrackedBot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bots[key]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *memoryBotStore) Upsert(_ context.Context, b *models.TrackedBot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.bots[b.EventKey] = &cp
	return nil
}

type countingCreator struct {
	mu      sync.Mutex
	calls   int
	block   chan struct{}
	lastReq CreateBotRequest
}

func (c *countingCreator) CreateBot(_ context.Context, req CreateBotRequest) (string, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.lastReq = req
	c.mu.Unlock()
	if c.block != nil {
		<-c.block
	}
	return fmt.Sprintf("bot-%d", n), nil
}

func (c *countingCreator) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestScheduleCreatesOnce(t *testing.T) {
	store := newMemoryBotStore()
	creator := &countingCreator{}
	s := NewScheduler(store, creator, 5, nil)

	req := ScheduleRequest{
		EventKey:   "acc:cal:evt",
		MeetingURL: "https://zoom.us/j/123",
		Platform:   models.PlatformZoom,
		Start:      time.Now().Add(time.Hour),
	}

	first, err := s.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "bot-1", first.BotID)
	assert.Equal(t, models.BotStatusCreated, first.Status)

	second, err := s.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, "bot-1", second.BotID)
	assert.Equal(t, 1, creator.callCount())
}

func TestScheduleJoinLeadTime(t *testing.T) {
	store := newMemoryBotStore()
	creator := &countingCreator{}
	s := NewScheduler(store, creator, 5, nil)

	start := time.Now().Add(time.Hour)
	_, err := s.Schedule(context.Background(), ScheduleRequest{
		EventKey:   "k1",
		MeetingURL: "https://meet.google.com/abc",
		Start:      start,
	})
	require.NoError(t, err)
	require.NotNil(t, creator.lastReq.JoinAt)
	assert.WithinDuration(t, start.Add(-5*time.Minute), *creator.lastReq.JoinAt, time.Second)

	// A meeting already underway joins immediately, without a join_at.
	_, err = s.Schedule(context.Background(), ScheduleRequest{
		EventKey:   "k2",
		MeetingURL: "https://meet.google.com/def",
		Start:      time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.Nil(t, creator.lastReq.JoinAt)
}

func TestScheduleConcurrentDuplicate(t *testing.T) {
	store := newMemoryBotStore()
	creator := &countingCreator{block: make(chan struct{})}
	s := NewScheduler(store, creator, 5, nil)

	req := ScheduleRequest{EventKey: "same", MeetingURL: "https://zoom.us/j/9"}

	done := make(chan ScheduleResult, 1)
	go func() {
		res, err := s.Schedule(context.Background(), req)
		assert.NoError(t, err)
		done <- res
	}()

	// Wait until the first caller is inside the provider call.
	require.Eventually(t, func() bool { return creator.callCount() == 1 }, time.Second, time.Millisecond)

	contended, err := s.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "scheduling", contended.Status)
	assert.Empty(t, contended.BotID)

	close(creator.block)
	first := <-done
	assert.True(t, first.Created)
	assert.Equal(t, 1, creator.callCount())

	// After the first completes, the same request resolves to its bot.
	again, err := s.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.BotID, again.BotID)
	assert.Equal(t, 1, creator.callCount())
}

func TestScheduleValidation(t *testing.T) {
	s := NewScheduler(newMemoryBotStore(), &countingCreator{}, 5, nil)
	_, err := s.Schedule(context.Background(), ScheduleRequest{MeetingURL: "https://zoom.us/j/1"})
	assert.Error(t, err)
	_, err = s.Schedule(context.Background(), ScheduleRequest{EventKey: "k"})
	assert.Error(t, err)
}
