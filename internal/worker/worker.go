// Package worker runs background content refinement: deterministic drafts are
// replaced with AI-generated ones once the AI provider answers, unless a human
// already touched the draft.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/ai"
	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/queue"
)

// MeetingSource loads the meeting a job refers to.
type MeetingSource interface {
	Get(ctx context.Context, id string) (*models.Meeting, error)
}

// ContentStore reads and conditionally replaces drafted content.
type ContentStore interface {
	Get(ctx context.Context, meetingID string) (*models.GeneratedContent, error)
	ReplaceUntouched(ctx context.Context, content *models.GeneratedContent) (bool, error)
}

// ContentProcessor processes content refinement jobs.
type ContentProcessor struct {
	meetings MeetingSource
	contents ContentStore
	ai       *ai.Service
	queue    *queue.Queue
	logger   *zap.Logger
}

// NewContentProcessor creates a content refinement processor.
func NewContentProcessor(meetings MeetingSource, contents ContentStore, aiSvc *ai.Service, q *queue.Queue, logger *zap.Logger) *ContentProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentProcessor{meetings: meetings, contents: contents, ai: aiSvc, queue: q, logger: logger}
}

// Process executes one refinement job. A missing meeting or content row is
// terminal, not retryable; so is an untouched-check miss.
func (p *ContentProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeContentRefine {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ContentRefinePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	meeting, err := p.meetings.Get(ctx, payload.MeetingID)
	if err != nil {
		return fmt.Errorf("load meeting: %w", err)
	}
	if meeting == nil || meeting.Transcript == "" {
		p.logger.Info("nothing to refine", zap.String("meeting_id", payload.MeetingID))
		return nil
	}

	content, err := p.contents.Get(ctx, payload.MeetingID)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	if content == nil {
		p.logger.Info("content missing, skipping refine", zap.String("meeting_id", payload.MeetingID))
		return nil
	}

	refined, ok := p.ai.Refine(ctx, meeting.Transcript, content)
	if !ok {
		return nil
	}

	applied, err := p.contents.ReplaceUntouched(ctx, refined)
	if err != nil {
		return fmt.Errorf("apply refined content: %w", err)
	}
	if !applied {
		p.logger.Info("content already edited, refine discarded", zap.String("meeting_id", payload.MeetingID))
		return nil
	}

	p.logger.Info("content refined", zap.String("meeting_id", payload.MeetingID))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ContentProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("content worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
