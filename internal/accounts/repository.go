package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postmeeting/backend/internal/models"
)

// Repository handles linked account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an account repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert links an account or refreshes an existing link's tokens and name.
func (r *Repository) Upsert(ctx context.Context, a *models.Account) error {
	const q = `INSERT INTO accounts (id, email, display_name, tokens)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			tokens = EXCLUDED.tokens`
	_, err := r.pool.Exec(ctx, q, a.ID, a.Email, a.DisplayName, a.Tokens)
	return err
}

// UpdateTokens stores a refreshed token payload.
func (r *Repository) UpdateTokens(ctx context.Context, id string, tokens TokenSet) error {
	payload, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	_, err = r.pool.Exec(ctx, `UPDATE accounts SET tokens = $2 WHERE id = $1`, id, payload)
	return err
}

// Get returns one account, or nil when not linked.
func (r *Repository) Get(ctx context.Context, id string) (*models.Account, error) {
	const q = `SELECT id, email, display_name, tokens FROM accounts WHERE id = $1`
	var a models.Account
	var displayName *string
	err := r.pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.Email, &displayName, &a.Tokens)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if displayName != nil {
		a.DisplayName = *displayName
	}
	return &a, nil
}

// List returns all linked accounts.
func (r *Repository) List(ctx context.Context) ([]models.Account, error) {
	const q = `SELECT id, email, display_name, tokens FROM accounts ORDER BY email`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Account
	for rows.Next() {
		var a models.Account
		var displayName *string
		if err := rows.Scan(&a.ID, &a.Email, &displayName, &a.Tokens); err != nil {
			return nil, err
		}
		if displayName != nil {
			a.DisplayName = *displayName
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Delete unlinks an account.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

// Tokens decodes an account's stored credential payload.
func Tokens(a *models.Account) (TokenSet, error) {
	var ts TokenSet
	if err := json.Unmarshal(a.Tokens, &ts); err != nil {
		return TokenSet{}, fmt.Errorf("decode account tokens: %w", err)
	}
	return ts, nil
}
