// Package social links LinkedIn and Facebook accounts and publishes drafted
// posts to them.
package social

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postmeeting/backend/internal/models"
)

// Repository handles social credential persistence. One row per provider.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a social token repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save stores or replaces a provider's credential.
func (r *Repository) Save(ctx context.Context, t *models.SocialToken) error {
	const q = `INSERT INTO social_tokens (provider, access_token, expires_at, external_id, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			expires_at = EXCLUDED.expires_at,
			external_id = EXCLUDED.external_id,
			updated_at = now()`
	_, err := r.pool.Exec(ctx, q, string(t.Provider), t.AccessToken, t.ExpiresAt, t.ExternalID)
	return err
}

// Get returns a provider's credential, or nil when not linked.
func (r *Repository) Get(ctx context.Context, provider models.SocialPlatform) (*models.SocialToken, error) {
	const q = `SELECT provider, access_token, expires_at, external_id FROM social_tokens WHERE provider = $1`
	var t models.SocialToken
	var prov string
	var externalID *string
	err := r.pool.QueryRow(ctx, q, string(provider)).Scan(&prov, &t.AccessToken, &t.ExpiresAt, &externalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Provider = models.SocialPlatform(prov)
	if externalID != nil {
		t.ExternalID = *externalID
	}
	return &t, nil
}

// Delete unlinks a provider.
func (r *Repository) Delete(ctx context.Context, provider models.SocialPlatform) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM social_tokens WHERE provider = $1`, string(provider))
	return err
}
