package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"donation-platform/internal/models"
)

type ProfileRepository struct {
	DB *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	query := `SELECT id, email, full_name, phone, created_at, updated_at FROM profiles WHERE id = $1`
	if err := r.DB.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update sets the editable profile fields that are non-nil and returns the
// stored row.
func (r *ProfileRepository) Update(ctx context.Context, id string, fullName, phone *string) (*models.Profile, error) {
	var p models.Profile
	query := `UPDATE profiles SET full_name = COALESCE($1, full_name), phone = COALESCE($2, phone), updated_at = now()
	          WHERE id = $3
	          RETURNING id, email, full_name, phone, created_at, updated_at`
	if err := r.DB.QueryRowxContext(ctx, query, fullName, phone, id).StructScan(&p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
