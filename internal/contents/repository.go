// Package contents stores drafted follow-up content and serves the editing
// and publishing endpoints.
package contents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postmeeting/backend/internal/models"
)

// Repository handles generated content persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a content repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateIfAbsent stores content for a meeting unless some already exists.
// Reports whether the row was inserted; an existing row is left untouched so
// edits and publish state survive reconcile retries.
func (r *Repository) CreateIfAbsent(ctx context.Context, content *models.GeneratedContent) (bool, error) {
	posts, err := json.Marshal(content.Posts)
	if err != nil {
		return false, fmt.Errorf("marshal posts: %w", err)
	}
	const q = `INSERT INTO generated_contents (meeting_id, email_subject, email_body, posts, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (meeting_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q,
		content.MeetingID, content.FollowupEmail.Subject, content.FollowupEmail.Body, posts)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Get returns a meeting's content, or nil.
func (r *Repository) Get(ctx context.Context, meetingID string) (*models.GeneratedContent, error) {
	const q = `SELECT meeting_id, email_subject, email_body, posts FROM generated_contents WHERE meeting_id = $1`
	var content models.GeneratedContent
	var posts []byte
	err := r.pool.QueryRow(ctx, q, meetingID).
		Scan(&content.MeetingID, &content.FollowupEmail.Subject, &content.FollowupEmail.Body, &posts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(posts) > 0 {
		if err := json.Unmarshal(posts, &content.Posts); err != nil {
			return nil, fmt.Errorf("decode posts: %w", err)
		}
	}
	return &content, nil
}

// savePosts replaces the posts payload.
func (r *Repository) savePosts(ctx context.Context, meetingID string, posts []models.Post) error {
	payload, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("marshal posts: %w", err)
	}
	const q = `UPDATE generated_contents SET posts = $2, updated_at = now() WHERE meeting_id = $1`
	tag, err := r.pool.Exec(ctx, q, meetingID, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdatePost edits one post draft in place.
func (r *Repository) UpdatePost(ctx context.Context, meetingID, postID, body string) (*models.GeneratedContent, error) {
	content, err := r.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}
	found := false
	now := time.Now().UTC()
	for i := range content.Posts {
		if content.Posts[i].ID == postID {
			content.Posts[i].Content = body
			content.Posts[i].EditedAt = &now
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}
	if err := r.savePosts(ctx, meetingID, content.Posts); err != nil {
		return nil, err
	}
	return content, nil
}

// MarkPosted replaces the platform's post with its published form and stamps
// postedAt. At most one post per platform survives.
func (r *Repository) MarkPosted(ctx context.Context, meetingID string, post models.Post) (*models.GeneratedContent, error) {
	content, err := r.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	post.PostedAt = &now

	replaced := false
	kept := content.Posts[:0]
	for _, p := range content.Posts {
		if p.Platform == post.Platform {
			if !replaced {
				kept = append(kept, post)
				replaced = true
			}
			continue
		}
		kept = append(kept, p)
	}
	if !replaced {
		kept = append(kept, post)
	}
	content.Posts = kept

	if err := r.savePosts(ctx, meetingID, content.Posts); err != nil {
		return nil, err
	}
	return content, nil
}

// UpdateEmail edits the follow-up email draft.
func (r *Repository) UpdateEmail(ctx context.Context, meetingID string, email models.FollowupEmail) error {
	const q = `UPDATE generated_contents SET email_subject = $2, email_body = $3, updated_at = now() WHERE meeting_id = $1`
	tag, err := r.pool.Exec(ctx, q, meetingID, email.Subject, email.Body)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ReplaceUntouched overwrites the drafts only when nothing has been edited or
// posted yet. Used by the background refine worker so AI output never clobbers
// human changes.
func (r *Repository) ReplaceUntouched(ctx context.Context, content *models.GeneratedContent) (bool, error) {
	existing, err := r.Get(ctx, content.MeetingID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	for _, p := range existing.Posts {
		if p.PostedAt != nil || p.EditedAt != nil {
			return false, nil
		}
	}

	posts, err := json.Marshal(content.Posts)
	if err != nil {
		return false, fmt.Errorf("marshal posts: %w", err)
	}
	const q = `UPDATE generated_contents SET email_subject = $2, email_body = $3, posts = $4, updated_at = now() WHERE meeting_id = $1`
	_, err = r.pool.Exec(ctx, q,
		content.MeetingID, content.FollowupEmail.Subject, content.FollowupEmail.Body, posts)
	if err != nil {
		return false, err
	}
	return true, nil
}
