package scratch

import (
	"image"
	"math"
	"strings"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
)

// Surface is the drawable coating a Card scratches. OcclusionLayer is the
// production implementation; tests substitute fakes.
//
// Erase returns how many pixels it turned transparent, so a move costs the
// disc, not the whole buffer. TransparentPixels is a full count, used only
// when the card mounts or the surface is resized.
type Surface interface {
	Size() (width, height int)
	Erase(center image.Point, radius int) int
	TransparentPixels() int
	Resize(containerWidth int) bool
}

// State is the scratch tracker state.
type State int

const (
	StateIdle State = iota
	StateScratching
	StateRevealed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScratching:
		return "scratching"
	case StateRevealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// RevealFunc receives the promo code and raw expiry once the card is revealed.
type RevealFunc func(promoCode, validUntil string)

// Snapshot is a point-in-time view of a card.
type Snapshot struct {
	State      State
	Width      int
	Height     int
	Total      int
	Scratched  int
	Progress   int
	Revealed   bool
	PromoCode  string // empty until revealed
	ValidUntil string // empty until revealed
}

// Card tracks pointer input against a Surface and fires the reveal callback
// exactly once when coverage reaches the threshold.
//
// A Card is not safe for concurrent use; callers serialize access.
type Card struct {
	surface  Surface
	settings Settings
	onReveal RevealFunc

	promoCode  string
	validUntil string

	state     State
	total     int
	scratched int
	closed    bool
}

// ResolveReward returns the code and expiry a card reveals for the offer.
// A missing offer or blank code falls back to DefaultPromoCode.
func ResolveReward(offer *model.RewardOffer) (promoCode, validUntil string) {
	if offer == nil {
		return DefaultPromoCode, ""
	}
	promoCode = strings.TrimSpace(offer.DiscountCode)
	if promoCode == "" {
		promoCode = DefaultPromoCode
	}
	return promoCode, strings.TrimSpace(offer.ValidUntil)
}

// NewCard mounts a card over the surface. onReveal may be nil.
func NewCard(surface Surface, offer *model.RewardOffer, s Settings, onReveal RevealFunc) *Card {
	code, validUntil := ResolveReward(offer)
	c := &Card{
		surface:    surface,
		settings:   s,
		onReveal:   onReveal,
		promoCode:  code,
		validUntil: validUntil,
	}
	c.measure()
	return c
}

func (c *Card) measure() {
	w, h := c.surface.Size()
	c.total = w * h
	c.scratched = c.surface.TransparentPixels()
}

// PointerDown starts scratching unless the card is revealed or closed.
func (c *Card) PointerDown() {
	if c.closed || c.state == StateRevealed {
		return
	}
	c.state = StateScratching
}

// PointerUp stops scratching.
func (c *Card) PointerUp() {
	if c.closed || c.state == StateRevealed {
		return
	}
	c.state = StateIdle
}

// PointerLeave behaves like PointerUp.
func (c *Card) PointerLeave() {
	c.PointerUp()
}

// PointerMove erases around p while scratching and reports whether this move
// revealed the card.
func (c *Card) PointerMove(p image.Point) bool {
	if c.closed || c.state != StateScratching {
		return false
	}
	if n := c.surface.Erase(p, c.settings.EraseRadius); n > 0 {
		c.scratched = min(c.scratched+n, c.total)
	}
	return c.evaluate()
}

// Resize forwards a container resize to the surface and re-measures it.
// Unlike a fresh mount the coating is not repainted: the surface keeps its
// scratches, and the carried-over coverage can reveal an idle card.
func (c *Card) Resize(containerWidth int) bool {
	if c.closed {
		return false
	}
	if !c.surface.Resize(containerWidth) {
		return false
	}
	c.measure()
	if c.state != StateRevealed {
		c.evaluate()
	}
	return true
}

func (c *Card) evaluate() bool {
	if c.state == StateRevealed || c.total == 0 {
		return false
	}
	if float64(c.scratched)/float64(c.total) < c.settings.Threshold {
		return false
	}
	c.state = StateRevealed
	if c.onReveal != nil {
		c.onReveal(c.promoCode, c.validUntil)
	}
	return true
}

// Close unmounts the card. Every later input is ignored.
func (c *Card) Close() {
	c.closed = true
}

// Closed reports whether the card has been unmounted.
func (c *Card) Closed() bool {
	return c.closed
}

// State returns the current tracker state.
func (c *Card) State() State {
	return c.state
}

// Revealed reports whether the reveal has fired.
func (c *Card) Revealed() bool {
	return c.state == StateRevealed
}

// ScratchedPixels returns the transparent pixel count seen by the tracker.
func (c *Card) ScratchedPixels() int {
	return c.scratched
}

// TotalPixels returns the surface area in pixels.
func (c *Card) TotalPixels() int {
	return c.total
}

// Progress returns the rounded coverage percentage, 0 for an empty surface.
func (c *Card) Progress() int {
	if c.total == 0 {
		return 0
	}
	return int(math.Round(float64(c.scratched) / float64(c.total) * 100))
}

// Snapshot returns the card's current view. The reward is only disclosed
// after the reveal.
func (c *Card) Snapshot() Snapshot {
	w, h := c.surface.Size()
	s := Snapshot{
		State:     c.state,
		Width:     w,
		Height:    h,
		Total:     c.total,
		Scratched: c.scratched,
		Progress:  c.Progress(),
		Revealed:  c.state == StateRevealed,
	}
	if s.Revealed {
		s.PromoCode = c.promoCode
		s.ValidUntil = c.validUntil
	}
	return s
}
