package recall

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postmeeting/backend/internal/models"
)

// Repository handles tracked bot persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tracked bot repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const botColumns = `bot_id, event_key, meeting_url, platform, join_at, region, status, updated_at`

// Upsert inserts or replaces a tracked bot keyed by event.
func (r *Repository) Upsert(ctx context.Context, b *models.TrackedBot) error {
	const q = `INSERT INTO recall_bots (bot_id, event_key, meeting_url, platform, join_at, region, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (event_key) DO UPDATE SET
			bot_id = EXCLUDED.bot_id,
			meeting_url = EXCLUDED.meeting_url,
			platform = EXCLUDED.platform,
			join_at = EXCLUDED.join_at,
			region = EXCLUDED.region,
			status = EXCLUDED.status,
			updated_at = now()
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, b.BotID, b.EventKey, b.MeetingURL, b.Platform, b.JoinAt, b.Region, b.Status).
		Scan(&b.UpdatedAt)
}

// GetByEventKey returns the tracked bot for a calendar event, or nil.
func (r *Repository) GetByEventKey(ctx context.Context, eventKey string) (*models.TrackedBot, error) {
	const q = `SELECT ` + botColumns + ` FROM recall_bots WHERE event_key = $1`
	return r.scanOne(r.pool.QueryRow(ctx, q, eventKey))
}

// GetByBotID returns the tracked bot with the given provider id, or nil.
func (r *Repository) GetByBotID(ctx context.Context, botID string) (*models.TrackedBot, error) {
	const q = `SELECT ` + botColumns + ` FROM recall_bots WHERE bot_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, q, botID))
}

// UpdateStatus records a lifecycle transition.
func (r *Repository) UpdateStatus(ctx context.Context, botID, status string) error {
	const q = `UPDATE recall_bots SET status = $2, updated_at = now() WHERE bot_id = $1`
	_, err := r.pool.Exec(ctx, q, botID, status)
	return err
}

// Delete removes a tracked bot.
func (r *Repository) Delete(ctx context.Context, botID string) error {
	const q = `DELETE FROM recall_bots WHERE bot_id = $1`
	_, err := r.pool.Exec(ctx, q, botID)
	return err
}

// List returns all tracked bots ordered by most recently touched.
func (r *Repository) List(ctx context.Context) ([]models.TrackedBot, error) {
	const q = `SELECT ` + botColumns + ` FROM recall_bots ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.TrackedBot
	for rows.Next() {
		var b models.TrackedBot
		if err := rows.Scan(&b.BotID, &b.EventKey, &b.MeetingURL, &b.Platform, &b.JoinAt, &b.Region, &b.Status, &b.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *Repository) scanOne(row pgx.Row) (*models.TrackedBot, error) {
	var b models.TrackedBot
	err := row.Scan(&b.BotID, &b.EventKey, &b.MeetingURL, &b.Platform, &b.JoinAt, &b.Region, &b.Status, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
