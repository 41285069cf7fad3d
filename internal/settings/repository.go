// Package settings stores the singleton user configuration row.
package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postmeeting/backend/internal/models"
)

// settingsRowID pins the singleton row.
const settingsRowID = 1

// Repository handles settings persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a settings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the stored settings, or the defaults before any save.
func (r *Repository) Get(ctx context.Context) (models.Settings, error) {
	const q = `SELECT minutes_before_join, window_days, poll_seconds, recall_region,
		linked_in_target, linked_in_org_urn, linked_in_org_name,
		facebook_target, facebook_page_id, facebook_page_name
		FROM settings WHERE id = $1`
	s := models.DefaultSettings()
	var minutes, window, poll *int
	var region, liTarget, liURN, liName *string
	var fbTarget, fbPageID, fbPageName *string
	err := r.pool.QueryRow(ctx, q, settingsRowID).Scan(
		&minutes, &window, &poll, &region,
		&liTarget, &liURN, &liName,
		&fbTarget, &fbPageID, &fbPageName)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if minutes != nil {
		s.MinutesBeforeJoin = *minutes
	}
	if window != nil {
		s.WindowDays = *window
	}
	if poll != nil {
		s.PollSeconds = *poll
	}
	if region != nil && *region != "" {
		s.RecallRegion = *region
	}
	if liTarget != nil && *liTarget != "" {
		s.LinkedInTarget = *liTarget
	}
	if liURN != nil {
		s.LinkedInOrgURN = *liURN
	}
	if liName != nil {
		s.LinkedInOrgName = *liName
	}
	if fbTarget != nil && *fbTarget != "" {
		s.FacebookTarget = *fbTarget
	}
	if fbPageID != nil {
		s.FacebookPageID = *fbPageID
	}
	if fbPageName != nil {
		s.FacebookPageName = *fbPageName
	}
	return s, nil
}

// Save upserts the singleton row.
func (r *Repository) Save(ctx context.Context, s models.Settings) error {
	const q = `INSERT INTO settings (id, minutes_before_join, window_days, poll_seconds, recall_region,
			linked_in_target, linked_in_org_urn, linked_in_org_name,
			facebook_target, facebook_page_id, facebook_page_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			minutes_before_join = EXCLUDED.minutes_before_join,
			window_days = EXCLUDED.window_days,
			poll_seconds = EXCLUDED.poll_seconds,
			recall_region = EXCLUDED.recall_region,
			linked_in_target = EXCLUDED.linked_in_target,
			linked_in_org_urn = EXCLUDED.linked_in_org_urn,
			linked_in_org_name = EXCLUDED.linked_in_org_name,
			facebook_target = EXCLUDED.facebook_target,
			facebook_page_id = EXCLUDED.facebook_page_id,
			facebook_page_name = EXCLUDED.facebook_page_name`
	_, err := r.pool.Exec(ctx, q, settingsRowID,
		s.MinutesBeforeJoin, s.WindowDays, s.PollSeconds, s.RecallRegion,
		s.LinkedInTarget, s.LinkedInOrgURN, s.LinkedInOrgName,
		s.FacebookTarget, s.FacebookPageID, s.FacebookPageName)
	return err
}
