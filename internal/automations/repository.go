// Package automations stores the user's content rules. The set is small and
// always edited as a whole, so writes replace it atomically.
package automations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postmeeting/backend/internal/models"
)

// Repository handles automation persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an automation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all automations.
func (r *Repository) List(ctx context.Context) ([]models.Automation, error) {
	const q = `SELECT id, platform, name, enabled, template, description FROM automations ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Automation
	for rows.Next() {
		var a models.Automation
		var name, template, description *string
		var platform string
		if err := rows.Scan(&a.ID, &platform, &name, &a.Enabled, &template, &description); err != nil {
			return nil, err
		}
		a.Platform = models.SocialPlatform(platform)
		if name != nil {
			a.Name = *name
		}
		if template != nil {
			a.Template = *template
		}
		if description != nil {
			a.Description = *description
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// ReplaceAll swaps the stored set for the given one in a single transaction.
func (r *Repository) ReplaceAll(ctx context.Context, autos []models.Automation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM automations`); err != nil {
		return err
	}
	const q = `INSERT INTO automations (id, platform, name, enabled, template, description)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, a := range autos {
		if _, err := tx.Exec(ctx, q, a.ID, string(a.Platform), a.Name, a.Enabled, a.Template, a.Description); err != nil {
			return fmt.Errorf("insert automation %s: %w", a.ID, err)
		}
	}
	return tx.Commit(ctx)
}
