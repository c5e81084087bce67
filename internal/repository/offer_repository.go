package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
	"github.com/fairyhunter13/parcelace-scratch/internal/service"
	"github.com/fairyhunter13/parcelace-scratch/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const offerColumns = `id::text, title, description, discount_code, discount_percentage::text, valid_until, active, reveal_count, created_at`

// OfferRepository provides data access for reward offers using pgx.
type OfferRepository struct {
	pool PoolInterface
}

// NewOfferRepository creates a new OfferRepository with the given pool.
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// NewOfferRepositoryWithPool creates a new OfferRepository with a custom pool interface.
// This is primarily used for testing.
func NewOfferRepositoryWithPool(pool PoolInterface) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// Insert inserts a new reward offer.
// Returns service.ErrOfferExists if the discount code is already taken.
func (r *OfferRepository) Insert(ctx context.Context, offer *model.RewardOffer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reward_offers (id, title, description, discount_code, discount_percentage, valid_until, active)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`,
		offer.ID, offer.Title, offer.Description, offer.DiscountCode,
		offer.DiscountPercentage.String(), offer.ValidUntil, offer.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return service.ErrOfferExists
		}
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// GetByID retrieves an offer by id.
// Returns nil, nil if the offer is not found (service layer handles this).
func (r *OfferRepository) GetByID(ctx context.Context, id string) (*model.RewardOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM reward_offers WHERE id = $1`

	offer, err := scanOffer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get offer by id %s: %w", id, err)
	}
	return offer, nil
}

// GetActive retrieves the most recently created active offer.
// Returns nil, nil if no offer is active.
func (r *OfferRepository) GetActive(ctx context.Context) (*model.RewardOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM reward_offers WHERE active ORDER BY created_at DESC LIMIT 1`

	offer, err := scanOffer(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active offer: %w", err)
	}
	return offer, nil
}

// IncrementRevealCount bumps the offer's reveal counter inside a transaction.
func (r *OfferRepository) IncrementRevealCount(ctx context.Context, tx database.TxQuerier, id string) error {
	query := `UPDATE reward_offers SET reveal_count = reveal_count + 1 WHERE id = $1`

	_, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment reveal count for %s: %w", id, err)
	}
	return nil
}

func scanOffer(row pgx.Row) (*model.RewardOffer, error) {
	var (
		offer     model.RewardOffer
		pct       string
		createdAt time.Time
	)
	err := row.Scan(
		&offer.ID,
		&offer.Title,
		&offer.Description,
		&offer.DiscountCode,
		&pct,
		&offer.ValidUntil,
		&offer.Active,
		&offer.RevealCount,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	offer.CreatedAt = createdAt

	d, err := decimal.NewFromString(pct)
	if err != nil {
		return nil, fmt.Errorf("parse discount percentage %q: %w", pct, err)
	}
	offer.DiscountPercentage = d
	return &offer, nil
}
