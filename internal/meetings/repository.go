// Package meetings stores finalized meeting records and their cheap id index.
package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postmeeting/backend/internal/models"
)

// MaxListLimit caps one page of the meeting list.
const MaxListLimit = 200

// Repository handles meeting persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meeting repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes a meeting keyed by id. Media flags only ever move forward;
// a poll that temporarily loses sight of an artifact must not clear it.
func (r *Repository) Upsert(ctx context.Context, m *models.Meeting) error {
	attendees, err := json.Marshal(m.Attendees)
	if err != nil {
		return fmt.Errorf("marshal attendees: %w", err)
	}
	const q = `INSERT INTO meetings (id, event_id, account_id, platform, title, start_at, attendees, transcript, bot_id, has_recording, has_transcript, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			start_at = EXCLUDED.start_at,
			attendees = EXCLUDED.attendees,
			transcript = EXCLUDED.transcript,
			bot_id = EXCLUDED.bot_id,
			has_recording = meetings.has_recording OR EXCLUDED.has_recording,
			has_transcript = meetings.has_transcript OR EXCLUDED.has_transcript,
			updated_at = now()`
	_, err = r.pool.Exec(ctx, q,
		m.ID, m.EventID, m.AccountID, string(m.Platform), m.Title, m.Start,
		attendees, m.Transcript, m.Media.BotID, m.Media.HasRecording, m.Media.HasTranscript)
	return err
}

// SetArchiveKey records where the raw transcript payload was archived.
func (r *Repository) SetArchiveKey(ctx context.Context, id, key string) error {
	_, err := r.pool.Exec(ctx, `UPDATE meetings SET archive_key = $2 WHERE id = $1`, id, key)
	return err
}

// Get returns one meeting, or nil when unknown.
func (r *Repository) Get(ctx context.Context, id string) (*models.Meeting, error) {
	const q = `SELECT id, event_id, account_id, platform, title, start_at, attendees, transcript, bot_id, has_recording, has_transcript, updated_at
		FROM meetings WHERE id = $1`
	m, err := scanMeeting(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List returns meetings ordered by start DESC, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Meeting, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT id, event_id, account_id, platform, title, start_at, attendees, transcript, bot_id, has_recording, has_transcript, updated_at
		FROM meetings ORDER BY start_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// Index returns the dedup view: ids and media flags, no transcript payloads.
func (r *Repository) Index(ctx context.Context) ([]models.MeetingIndexEntry, error) {
	const q = `SELECT id, bot_id, has_recording, has_transcript, transcript <> '' FROM meetings`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.MeetingIndexEntry
	for rows.Next() {
		var e models.MeetingIndexEntry
		var botID *string
		if err := rows.Scan(&e.ID, &botID, &e.HasRecording, &e.HasTranscript, &e.TranscriptStored); err != nil {
			return nil, err
		}
		if botID != nil {
			e.BotID = *botID
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanMeeting(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	var attendees []byte
	var accountID, botID *string
	var platform string
	if err := row.Scan(&m.ID, &m.EventID, &accountID, &platform, &m.Title, &m.Start,
		&attendees, &m.Transcript, &botID, &m.Media.HasRecording, &m.Media.HasTranscript, &m.Media.UpdatedAt); err != nil {
		return nil, err
	}
	if len(attendees) > 0 {
		if err := json.Unmarshal(attendees, &m.Attendees); err != nil {
			return nil, fmt.Errorf("decode attendees: %w", err)
		}
	}
	if accountID != nil {
		m.AccountID = *accountID
	}
	if botID != nil {
		m.Media.BotID = *botID
	}
	m.Platform = models.Platform(platform)
	return &m, nil
}
