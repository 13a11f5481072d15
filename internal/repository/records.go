package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"donation-platform/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrUnknownKind       = errors.New("unknown record kind")
)

const recordColumns = `id, payer_id, amount, currency, method, status, transaction_id, proof_url, created_at, updated_at`

// RecordRepository stores donations and memberships in Supabase Postgres.
// The two tables share one layout.
type RecordRepository struct {
	DB *sqlx.DB
}

func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{DB: db}
}

func table(kind models.Kind) (string, error) {
	t := kind.Table()
	if t == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return t, nil
}

// Insert writes rec and fills its id and timestamps. A second insert with
// the same transaction_id is a no-op and reports inserted=false.
func (r *RecordRepository) Insert(ctx context.Context, kind models.Kind, rec *models.Record) (bool, error) {
	t, err := table(kind)
	if err != nil {
		return false, err
	}

	query := `INSERT INTO ` + t + ` (payer_id, amount, currency, method, status, transaction_id, proof_url)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (transaction_id) DO NOTHING
	          RETURNING id, created_at, updated_at`

	row := r.DB.QueryRowxContext(ctx, query,
		rec.PayerID, rec.Amount, rec.Currency, rec.Method, rec.Status, rec.TransactionID, rec.ProofURL,
	)
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get fetches one record by id.
func (r *RecordRepository) Get(ctx context.Context, kind models.Kind, id string) (*models.Record, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}

	var rec models.Record
	query := `SELECT ` + recordColumns + ` FROM ` + t + ` WHERE id = $1`
	if err := r.DB.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListByPayer returns a payer's records, newest first.
func (r *RecordRepository) ListByPayer(ctx context.Context, kind models.Kind, payerID string) ([]models.Record, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}

	records := []models.Record{}
	query := `SELECT ` + recordColumns + ` FROM ` + t + ` WHERE payer_id = $1 ORDER BY created_at DESC`
	err = r.DB.SelectContext(ctx, &records, query, payerID)
	return records, err
}

// List returns all records of kind, optionally filtered by status, newest first.
func (r *RecordRepository) List(ctx context.Context, kind models.Kind, status models.Status) ([]models.Record, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}

	records := []models.Record{}
	if status == "" {
		query := `SELECT ` + recordColumns + ` FROM ` + t + ` ORDER BY created_at DESC`
		err = r.DB.SelectContext(ctx, &records, query)
	} else {
		query := `SELECT ` + recordColumns + ` FROM ` + t + ` WHERE status = $1 ORDER BY created_at DESC`
		err = r.DB.SelectContext(ctx, &records, query, status)
	}
	return records, err
}

// UpdateStatus moves a pending record to next. The update is conditional on
// the row still being pending, so concurrent reviewers cannot both win.
func (r *RecordRepository) UpdateStatus(ctx context.Context, kind models.Kind, id string, next models.Status) (*models.Record, error) {
	current, err := r.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}

	t, _ := table(kind)
	query := `UPDATE ` + t + ` SET status = $1, updated_at = now()
	          WHERE id = $2 AND status = $3
	          RETURNING updated_at`

	var updatedAt time.Time
	err = r.DB.QueryRowxContext(ctx, query, next, id, models.StatusPending).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: record changed concurrently", ErrInvalidTransition)
		}
		return nil, err
	}

	current.Status = next
	current.UpdatedAt = updatedAt
	return current, nil
}

// MembershipBadge reports whether payerID holds any paid or verified membership.
func (r *RecordRepository) MembershipBadge(ctx context.Context, payerID string) (models.Badge, error) {
	var since sql.NullTime
	query := `SELECT MIN(created_at) FROM memberships WHERE payer_id = $1 AND status IN ($2, $3)`
	if err := r.DB.GetContext(ctx, &since, query, payerID, models.StatusPaid, models.StatusVerified); err != nil {
		return models.Badge{}, err
	}
	if !since.Valid {
		return models.Badge{}, nil
	}
	t := since.Time
	return models.Badge{Member: true, Since: &t}, nil
}
