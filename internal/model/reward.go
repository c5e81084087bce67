package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardOffer is a promotion that can be hidden under a scratch card.
type RewardOffer struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	DiscountCode       string          `json:"discount_code"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	ValidUntil         string          `json:"valid_until"` // ISO date or display string
	Active             bool            `json:"active"`
	RevealCount        int             `json:"reveal_count"`
	CreatedAt          time.Time       `json:"-"`
}

// CreateOfferRequest is the DTO for creating a reward offer.
type CreateOfferRequest struct {
	Title              string           `json:"title" validate:"required,notblank,max=255"`
	Description        string           `json:"description" validate:"max=1024"`
	DiscountCode       string           `json:"discount_code" validate:"required,notblank,promocode"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage" validate:"required"`
	ValidUntil         string           `json:"valid_until" validate:"max=64"`
	Active             *bool            `json:"active"`
}

// RevealRecord is the persisted outcome of a revealed card.
type RevealRecord struct {
	CardID     string    `json:"card_id"`
	UserID     string    `json:"user_id"`
	OfferID    string    `json:"offer_id,omitempty"`
	PromoCode  string    `json:"promo_code"`
	ValidUntil string    `json:"valid_until"`
	RevealedAt time.Time `json:"revealed_at"`
}
