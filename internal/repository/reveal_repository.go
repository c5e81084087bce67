package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
	"github.com/fairyhunter13/parcelace-scratch/internal/service"
	"github.com/fairyhunter13/parcelace-scratch/pkg/database"
)

// RevealPoolInterface defines the database operations needed by RevealRepository.
type RevealPoolInterface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RevealRepository provides data access for scratch-card reveals using pgx.
type RevealRepository struct {
	pool RevealPoolInterface
}

// NewRevealRepository creates a new RevealRepository with the given pool.
func NewRevealRepository(pool *pgxpool.Pool) *RevealRepository {
	return &RevealRepository{pool: pool}
}

// NewRevealRepositoryWithPool creates a new RevealRepository with a custom pool interface.
// This is primarily used for testing.
func NewRevealRepositoryWithPool(pool RevealPoolInterface) *RevealRepository {
	return &RevealRepository{pool: pool}
}

// Insert records a reveal within a transaction.
// Returns service.ErrAlreadyRevealed if the card's reveal is already recorded.
func (r *RevealRepository) Insert(ctx context.Context, tx database.TxQuerier, rec *model.RevealRecord) error {
	query := `INSERT INTO scratch_reveals (card_id, user_id, offer_id, promo_code, valid_until, revealed_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, rec.CardID, rec.UserID, rec.OfferID, rec.PromoCode, rec.ValidUntil, rec.RevealedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return service.ErrAlreadyRevealed
		}
		return fmt.Errorf("insert reveal: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's reveals, oldest first.
// On success, returns an empty slice (not nil) when the user has none.
func (r *RevealRepository) ListByUser(ctx context.Context, userID string) ([]model.RevealRecord, error) {
	query := `SELECT card_id::text, user_id, COALESCE(offer_id::text, ''), promo_code, valid_until, revealed_at
		FROM scratch_reveals WHERE user_id = $1 ORDER BY revealed_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get reveals for user %s: %w", userID, err)
	}
	defer rows.Close()

	records := []model.RevealRecord{}
	for rows.Next() {
		var rec model.RevealRecord
		if err := rows.Scan(&rec.CardID, &rec.UserID, &rec.OfferID, &rec.PromoCode, &rec.ValidUntil, &rec.RevealedAt); err != nil {
			return nil, fmt.Errorf("scan reveal: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reveal rows: %w", err)
	}
	return records, nil
}
