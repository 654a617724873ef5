package repositories

import (
	"context"

	"storefront/models"
)

type GuestRepository interface {
	FindByToken(ctx context.Context, token string) (*models.Guest, error)
	// Create registers token, returning the existing row if another request
	// registered it first.
	Create(ctx context.Context, token string) (*models.Guest, error)
}

type guestRepository struct {
	db DBTX
}

func (r *guestRepository) FindByToken(ctx context.Context, token string) (*models.Guest, error) {
	var g models.Guest
	err := r.db.QueryRow(ctx, `SELECT id, token, created_at FROM guests WHERE token = $1`, token).
		Scan(&g.ID, &g.Token, &g.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (r *guestRepository) Create(ctx context.Context, token string) (*models.Guest, error) {
	var g models.Guest
	err := r.db.QueryRow(ctx,
		`INSERT INTO guests (token) VALUES ($1)
		 ON CONFLICT (token) DO UPDATE SET token = EXCLUDED.token
		 RETURNING id, token, created_at`, token).
		Scan(&g.ID, &g.Token, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
