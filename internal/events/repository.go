// Package events is the local calendar event store. Refreshes merge the
// provider's view with locally owned fields rather than overwriting rows.
package events

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

// Repository handles calendar event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, account_id, title, start_at, end_at, attendees, conferencing_url, platform, wants_notetaker, recall_bot_id`

// Merge applies a provider refresh. Provider fields (title, times, attendees,
// URL, platform) replace stored values; wants_notetaker and recall_bot_id
// stay local. Events no longer inside the window are pruned unless a bot is
// still linked.
func (r *Repository) Merge(ctx context.Context, events []models.CalendarEvent, windowFrom, windowTo time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const upsert = `INSERT INTO events (id, account_id, title, start_at, end_at, attendees, conferencing_url, platform, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			title = EXCLUDED.title,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			attendees = EXCLUDED.attendees,
			conferencing_url = EXCLUDED.conferencing_url,
			platform = EXCLUDED.platform,
			updated_at = now()`

	seen := make([]string, 0, len(events))
	for i := range events {
		ev := &events[i]
		attendees, err := json.Marshal(ev.Attendees)
		if err != nil {
			return fmt.Errorf("marshal attendees: %w", err)
		}
		if _, err := tx.Exec(ctx, upsert,
			ev.ID, ev.AccountID, ev.Title, ev.Start, ev.End,
			attendees, ev.ConferencingURL, string(ev.Platform)); err != nil {
			return fmt.Errorf("upsert event %s: %w", ev.ID, err)
		}
		seen = append(seen, ev.ID)
	}

	// Prune window-local rows the provider no longer returns, keeping any
	// event with a live bot so the reconciler can still finalize it.
	const prune = `DELETE FROM events
		WHERE start_at >= $1 AND start_at <= $2
		  AND recall_bot_id IS NULL
		  AND NOT (id = ANY($3))`
	if _, err := tx.Exec(ctx, prune, windowFrom, windowTo, seen); err != nil {
		return fmt.Errorf("prune events: %w", err)
	}

	return tx.Commit(ctx)
}

// List returns stored events ordered by start time.
func (r *Repository) List(ctx context.Context) ([]models.CalendarEvent, error) {
	const q = `SELECT ` + eventColumns + ` FROM events ORDER BY start_at`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.CalendarEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *ev)
	}
	return list, rows.Err()
}

// Get returns one event, or nil when unknown.
func (r *Repository) Get(ctx context.Context, id string) (*models.CalendarEvent, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	ev, err := scanEvent(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// SetNotetaker flips the local notetaker flag.
func (r *Repository) SetNotetaker(ctx context.Context, id string, enabled bool) error {
	const q = `UPDATE events SET wants_notetaker = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetBotLink records the scheduled bot for an event.
func (r *Repository) SetBotLink(ctx context.Context, id, botID string) error {
	const q = `UPDATE events SET recall_bot_id = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, botID)
	return err
}

// ClearBotLink removes an event's bot link and resets the notetaker flag, so
// a released event reads as a plain past event.
func (r *Repository) ClearBotLink(ctx context.Context, id string) error {
	const q = `UPDATE events SET recall_bot_id = NULL, wants_notetaker = FALSE, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// BackfillBotLinks attaches tracked bots to events matched by meeting URL,
// restoring links lost to a refresh race or a restart.
func (r *Repository) BackfillBotLinks(ctx context.Context, bots []models.TrackedBot) error {
	const q = `UPDATE events SET recall_bot_id = $2, updated_at = now()
		WHERE recall_bot_id IS NULL AND wants_notetaker AND conferencing_url = $1`
	for _, b := range bots {
		if b.MeetingURL == "" {
			continue
		}
		if _, err := r.pool.Exec(ctx, q, b.MeetingURL, b.BotID); err != nil {
			return fmt.Errorf("backfill bot %s: %w", b.BotID, err)
		}
	}
	return nil
}

func scanEvent(row pgx.Row) (*models.CalendarEvent, error) {
	var ev models.CalendarEvent
	var attendees []byte
	var confURL, botID *string
	var platform string
	if err := row.Scan(&ev.ID, &ev.AccountID, &ev.Title, &ev.Start, &ev.End,
		&attendees, &confURL, &platform, &ev.WantsNotetaker, &botID); err != nil {
		return nil, err
	}
	if len(attendees) > 0 {
		if err := json.Unmarshal(attendees, &ev.Attendees); err != nil {
			return nil, fmt.Errorf("decode attendees: %w", err)
		}
	}
	if confURL != nil {
		ev.ConferencingURL = *confURL
	}
	if botID != nil {
		ev.RecallBotID = *botID
	}
	ev.Platform = models.Platform(platform)
	return &ev, nil
}
