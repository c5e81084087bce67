// Package reveal formats a revealed scratch-card reward and hands it to the
// platform's clipboard and share capabilities.
package reveal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/parcelace-scratch/internal/scratch"
)

// FallbackExpiryText is shown when an offer has no usable expiry date.
const FallbackExpiryText = "Valid until December 31, 2024"

const displayLayout = "January 2, 2006"

var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02/01/2006",
}

// Clipboard writes text to the platform clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// Sharer hands a title and message to the platform share sheet.
type Sharer interface {
	Share(ctx context.Context, title, text string) error
}

// FormatExpiry renders the raw expiry for display. Missing or unparseable
// values yield FallbackExpiryText.
func FormatExpiry(validUntil string) string {
	t, ok := ParseExpiry(validUntil)
	if !ok {
		return FallbackExpiryText
	}
	return "Valid until " + t.Format(displayLayout)
}

// ParseExpiry tries the accepted expiry layouts in order.
func ParseExpiry(validUntil string) (time.Time, bool) {
	v := strings.TrimSpace(validUntil)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Reveal is what the reveal dialog shows.
type Reveal struct {
	PromoCode  string
	ExpiryText string
}

// New builds the dialog contents for a reveal callback.
func New(promoCode, validUntil string) Reveal {
	code := strings.TrimSpace(promoCode)
	if code == "" {
		code = scratch.DefaultPromoCode
	}
	return Reveal{
		PromoCode:  code,
		ExpiryText: FormatExpiry(validUntil),
	}
}

// ShareTitle is the share sheet title.
func (r Reveal) ShareTitle() string {
	return "My ParcelAce reward"
}

// ShareMessage is the text handed to the share sheet.
func (r Reveal) ShareMessage() string {
	return fmt.Sprintf("I just unlocked a ParcelAce discount! Use code %s on your next shipment. %s.",
		r.PromoCode, r.ExpiryText)
}

// Copy puts the promo code on the clipboard.
func (r Reveal) Copy(cb Clipboard) error {
	if err := cb.WriteAll(r.PromoCode); err != nil {
		return fmt.Errorf("copy promo code: %w", err)
	}
	return nil
}

// Share opens the share sheet with the reward message.
func (r Reveal) Share(ctx context.Context, s Sharer) error {
	if err := s.Share(ctx, r.ShareTitle(), r.ShareMessage()); err != nil {
		return fmt.Errorf("share promo code: %w", err)
	}
	return nil
}
