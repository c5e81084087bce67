package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
	"github.com/fairyhunter13/parcelace-scratch/internal/reveal"
	"github.com/fairyhunter13/parcelace-scratch/internal/scratch"
	"github.com/fairyhunter13/parcelace-scratch/internal/session"
	"github.com/fairyhunter13/parcelace-scratch/pkg/database"
)

var maxDiscount = decimal.NewFromInt(100)

// unmountPersistTimeout bounds the reveal write attempted when an idle card
// is evicted or the server shuts down.
const unmountPersistTimeout = 5 * time.Second

// OfferRepositoryInterface defines the interface for reward offer data access.
type OfferRepositoryInterface interface {
	Insert(ctx context.Context, offer *model.RewardOffer) error
	GetByID(ctx context.Context, id string) (*model.RewardOffer, error)
	GetActive(ctx context.Context) (*model.RewardOffer, error)
	IncrementRevealCount(ctx context.Context, tx database.TxQuerier, id string) error
}

// RevealRepositoryInterface defines the interface for reveal data access.
type RevealRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, rec *model.RevealRecord) error
	ListByUser(ctx context.Context, userID string) ([]model.RevealRecord, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ScratchService mounts scratch cards, applies pointer input and records reveals.
type ScratchService struct {
	pool       TxBeginner
	offerRepo  OfferRepositoryInterface
	revealRepo RevealRepositoryInterface
	store      *session.Store
	settings   scratch.Settings
	now        func() time.Time
}

// NewScratchService creates a new ScratchService with the given pool, repositories and card store.
func NewScratchService(pool *pgxpool.Pool, offerRepo OfferRepositoryInterface, revealRepo RevealRepositoryInterface, store *session.Store, settings scratch.Settings) *ScratchService {
	return NewScratchServiceWithTxBeginner(pool, offerRepo, revealRepo, store, settings)
}

// NewScratchServiceWithTxBeginner creates a ScratchService with a custom TxBeginner.
// Primarily used for testing.
func NewScratchServiceWithTxBeginner(pool TxBeginner, offerRepo OfferRepositoryInterface, revealRepo RevealRepositoryInterface, store *session.Store, settings scratch.Settings) *ScratchService {
	s := &ScratchService{
		pool:       pool,
		offerRepo:  offerRepo,
		revealRepo: revealRepo,
		store:      store,
		settings:   settings,
		now:        time.Now,
	}
	if store != nil {
		store.SetUnmountHook(s.flushOnUnmount)
	}
	return s
}

// CreateOffer stores a new reward offer and returns it.
// Returns ErrInvalidRequest for a nil request or a discount outside 0-100.
func (s *ScratchService) CreateOffer(ctx context.Context, req *model.CreateOfferRequest) (*model.RewardOffer, error) {
	if req == nil || req.DiscountPercentage == nil {
		return nil, ErrInvalidRequest
	}
	pct := *req.DiscountPercentage
	if pct.IsNegative() || pct.GreaterThan(maxDiscount) {
		return nil, ErrInvalidRequest
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	offer := &model.RewardOffer{
		ID:                 uuid.NewString(),
		Title:              req.Title,
		Description:        req.Description,
		DiscountCode:       req.DiscountCode,
		DiscountPercentage: pct.Round(2),
		ValidUntil:         req.ValidUntil,
		Active:             active,
	}
	if err := s.offerRepo.Insert(ctx, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// resolveOffer finds the offer hidden under a new card. An explicitly
// requested offer must exist; otherwise lookup failures degrade to the
// default reward.
func (s *ScratchService) resolveOffer(ctx context.Context, offerID string) (*model.RewardOffer, error) {
	if offerID != "" {
		offer, err := s.offerRepo.GetByID(ctx, offerID)
		if err != nil {
			log.Warn().Err(err).Str("offer_id", offerID).Msg("offer lookup failed, using default reward")
			return nil, nil
		}
		if offer == nil || !offer.Active {
			return nil, ErrOfferNotFound
		}
		return offer, nil
	}

	offer, err := s.offerRepo.GetActive(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("active offer lookup failed, using default reward")
		return nil, nil
	}
	return offer, nil
}

// StartCard mounts a new scratch card for the user.
func (s *ScratchService) StartCard(ctx context.Context, req *model.StartCardRequest) (*model.CardResponse, error) {
	if req == nil || req.ContainerWidth == nil {
		return nil, ErrInvalidRequest
	}

	offer, err := s.resolveOffer(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	layer := scratch.NewOcclusionLayer(*req.ContainerWidth, s.settings, binary.BigEndian.Uint64(id[:8]))
	entry := &session.Entry{
		ID:     id.String(),
		UserID: req.UserID,
		Layer:  layer,
	}
	if offer != nil {
		entry.OfferID = offer.ID
		entry.Title = offer.Title
		entry.Description = offer.Description
		entry.DiscountPercentage = offer.DiscountPercentage.StringFixed(2)
	}
	entry.Card = scratch.NewCard(layer, offer, s.settings, func(code, validUntil string) {
		entry.Reveal = &model.RevealRecord{
			CardID:     entry.ID,
			UserID:     entry.UserID,
			OfferID:    entry.OfferID,
			PromoCode:  code,
			ValidUntil: validUntil,
			RevealedAt: s.now(),
		}
	})
	if err := s.store.Put(entry); err != nil {
		if errors.Is(err, session.ErrFull) {
			log.Warn().Str("user_id", entry.UserID).Int("mounted", s.store.Len()).Msg("card limit reached")
			return nil, ErrCapacity
		}
		return nil, fmt.Errorf("mount card: %w", err)
	}

	w, h := layer.Size()
	log.Info().
		Str("card_id", entry.ID).
		Str("user_id", entry.UserID).
		Str("offer_id", entry.OfferID).
		Int("width", w).
		Int("height", h).
		Msg("scratch card mounted")

	return toResponse(entry), nil
}

// GetCard returns the card's current state.
func (s *ScratchService) GetCard(ctx context.Context, id string) (*model.CardResponse, error) {
	entry, err := s.lockEntry(id)
	if err != nil {
		return nil, err
	}
	defer entry.Mu.Unlock()

	s.persistReveal(ctx, entry)
	return toResponse(entry), nil
}

// ApplyStrokes feeds pointer events to the card in order.
// Returns ErrInvalidRequest if any event type is unknown; no event is applied then.
func (s *ScratchService) ApplyStrokes(ctx context.Context, id string, events []model.PointerEvent) (*model.CardResponse, error) {
	for _, ev := range events {
		switch ev.Type {
		case model.PointerDown, model.PointerMove, model.PointerUp, model.PointerLeave:
		default:
			return nil, ErrInvalidRequest
		}
	}

	entry, err := s.lockEntry(id)
	if err != nil {
		return nil, err
	}
	defer entry.Mu.Unlock()

	card := entry.Card
	for _, ev := range events {
		switch ev.Type {
		case model.PointerDown:
			card.PointerDown()
		case model.PointerMove:
			card.PointerMove(image.Pt(ev.X, ev.Y))
		case model.PointerUp:
			card.PointerUp()
		case model.PointerLeave:
			card.PointerLeave()
		}
	}

	s.persistReveal(ctx, entry)

	log.Debug().
		Str("card_id", entry.ID).
		Int("events", len(events)).
		Int("progress", card.Progress()).
		Str("state", card.State().String()).
		Msg("strokes applied")

	return toResponse(entry), nil
}

// Resize reports a container resize to the card.
func (s *ScratchService) Resize(ctx context.Context, id string, containerWidth int) (*model.CardResponse, error) {
	if containerWidth < 0 {
		return nil, ErrInvalidRequest
	}
	entry, err := s.lockEntry(id)
	if err != nil {
		return nil, err
	}
	defer entry.Mu.Unlock()

	entry.Card.Resize(containerWidth)
	s.persistReveal(ctx, entry)
	return toResponse(entry), nil
}

// RenderSurface writes the card's occlusion layer as PNG.
func (s *ScratchService) RenderSurface(ctx context.Context, id string, w io.Writer) error {
	entry, err := s.lockEntry(id)
	if err != nil {
		return err
	}
	defer entry.Mu.Unlock()

	if err := entry.Layer.EncodePNG(w); err != nil {
		if errors.Is(err, scratch.ErrEmptySurface) {
			return ErrEmptySurface
		}
		return fmt.Errorf("render surface: %w", err)
	}
	return nil
}

// CloseCard unmounts the card. A pending reveal is stored first; if that
// fails the card stays mounted and ErrRevealPending is returned.
func (s *ScratchService) CloseCard(ctx context.Context, id string) error {
	entry, err := s.lockEntry(id)
	if err != nil {
		return err
	}
	defer entry.Mu.Unlock()

	s.persistReveal(ctx, entry)
	if entry.Reveal != nil && !entry.Persisted {
		return ErrRevealPending
	}
	if !s.store.UnmountLocked(entry) {
		return ErrCardNotFound
	}
	log.Info().Str("card_id", id).Msg("scratch card unmounted")
	return nil
}

// lockEntry returns the mounted entry with its Mu held.
// A card unmounted while waiting for the lock counts as not found.
func (s *ScratchService) lockEntry(id string) (*session.Entry, error) {
	entry, ok := s.store.Get(id)
	if !ok {
		return nil, ErrCardNotFound
	}
	entry.Mu.Lock()
	if entry.Card.Closed() {
		entry.Mu.Unlock()
		return nil, ErrCardNotFound
	}
	return entry, nil
}

// ListReveals returns the user's revealed rewards, oldest first.
func (s *ScratchService) ListReveals(ctx context.Context, userID string) ([]model.RevealRecord, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	records, err := s.revealRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reveals: %w", err)
	}
	return records, nil
}

// RecordReveal stores a reveal and bumps the offer's reveal count atomically.
// Returns ErrAlreadyRevealed if the card's reveal is already stored.
func (s *ScratchService) RecordReveal(ctx context.Context, rec *model.RevealRecord) error {
	if rec == nil {
		return ErrInvalidRequest
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	if err := s.revealRepo.Insert(ctx, tx, rec); err != nil {
		if errors.Is(err, ErrAlreadyRevealed) {
			return ErrAlreadyRevealed
		}
		return fmt.Errorf("insert reveal: %w", err)
	}

	if rec.OfferID != "" {
		if err := s.offerRepo.IncrementRevealCount(ctx, tx, rec.OfferID); err != nil {
			return fmt.Errorf("increment reveal count: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// persistReveal stores a pending reveal. Failures are logged and retried on
// the card's next request; the customer still sees the code.
// Callers hold entry.Mu.
func (s *ScratchService) persistReveal(ctx context.Context, entry *session.Entry) {
	if entry.Reveal == nil || entry.Persisted {
		return
	}
	err := s.RecordReveal(ctx, entry.Reveal)
	switch {
	case err == nil:
		entry.Persisted = true
		log.Info().
			Str("card_id", entry.ID).
			Str("user_id", entry.UserID).
			Str("promo_code", entry.Reveal.PromoCode).
			Msg("scratch card revealed")
	case errors.Is(err, ErrAlreadyRevealed):
		entry.Persisted = true
		log.Warn().Str("card_id", entry.ID).Msg("reveal already recorded")
	default:
		log.Error().Err(err).Str("card_id", entry.ID).Msg("failed to record reveal")
	}
}

// flushOnUnmount is the store's unmount hook. It reports whether nothing is
// left to record, so idle cards with a pending reveal survive the sweep.
func (s *ScratchService) flushOnUnmount(entry *session.Entry) bool {
	ctx, cancel := context.WithTimeout(context.Background(), unmountPersistTimeout)
	defer cancel()

	s.persistReveal(ctx, entry)
	return entry.Reveal == nil || entry.Persisted
}

func toResponse(entry *session.Entry) *model.CardResponse {
	snap := entry.Card.Snapshot()
	resp := &model.CardResponse{
		ID:                 entry.ID,
		State:              snap.State.String(),
		Width:              snap.Width,
		Height:             snap.Height,
		Progress:           snap.Progress,
		ProgressText:       fmt.Sprintf("%d%%", snap.Progress),
		Revealed:           snap.Revealed,
		Title:              entry.Title,
		Description:        entry.Description,
		DiscountPercentage: entry.DiscountPercentage,
	}
	if snap.Revealed {
		r := reveal.New(snap.PromoCode, snap.ValidUntil)
		resp.PromoCode = r.PromoCode
		resp.ExpiryText = r.ExpiryText
		resp.ShareText = r.ShareMessage()
	}
	return resp
}
