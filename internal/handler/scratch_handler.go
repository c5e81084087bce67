package handler

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
	"github.com/fairyhunter13/parcelace-scratch/internal/service"
)

// ScratchServiceInterface defines the interface for scratch card business logic.
type ScratchServiceInterface interface {
	StartCard(ctx context.Context, req *model.StartCardRequest) (*model.CardResponse, error)
	GetCard(ctx context.Context, id string) (*model.CardResponse, error)
	ApplyStrokes(ctx context.Context, id string, events []model.PointerEvent) (*model.CardResponse, error)
	Resize(ctx context.Context, id string, containerWidth int) (*model.CardResponse, error)
	RenderSurface(ctx context.Context, id string, w io.Writer) error
	CloseCard(ctx context.Context, id string) error
	ListReveals(ctx context.Context, userID string) ([]model.RevealRecord, error)
}

// ScratchHandler handles HTTP requests for scratch card operations.
type ScratchHandler struct {
	service   ScratchServiceInterface
	validator *validator.Validate
}

// NewScratchHandler creates a new ScratchHandler with the given service and validator.
func NewScratchHandler(svc ScratchServiceInterface, v *validator.Validate) *ScratchHandler {
	return &ScratchHandler{service: svc, validator: v}
}

// writeServiceError maps service sentinels to HTTP responses.
func writeServiceError(c *fiber.Ctx, err error, cardID, op string) error {
	switch {
	case errors.Is(err, service.ErrCardNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "card not found"})
	case errors.Is(err, service.ErrOfferNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "offer not found"})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	case errors.Is(err, service.ErrEmptySurface):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "card has no surface"})
	case errors.Is(err, service.ErrCapacity):
		c.Set(fiber.HeaderRetryAfter, "30")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "too many active cards, try again later"})
	case errors.Is(err, service.ErrRevealPending):
		c.Set(fiber.HeaderRetryAfter, "5")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "reveal not recorded yet, try again"})
	}
	log.Error().Err(err).Str("card_id", cardID).Msg("failed to " + op)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// StartCard handles POST /api/scratch-cards requests to mount a new card.
func (h *ScratchHandler) StartCard(c *fiber.Ctx) error {
	var req model.StartCardRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	card, err := h.service.StartCard(c.Context(), &req)
	if err != nil {
		return writeServiceError(c, err, "", "start card")
	}

	log.Info().
		Str("card_id", card.ID).
		Str("user_id", req.UserID).
		Int("width", card.Width).
		Int("height", card.Height).
		Msg("card started")

	return c.Status(fiber.StatusCreated).JSON(card)
}

// GetCard handles GET /api/scratch-cards/:id requests.
func (h *ScratchHandler) GetCard(c *fiber.Ctx) error {
	id := c.Params("id")

	card, err := h.service.GetCard(c.Context(), id)
	if err != nil {
		return writeServiceError(c, err, id, "get card")
	}
	return c.JSON(card)
}

// ApplyStrokes handles POST /api/scratch-cards/:id/strokes requests.
func (h *ScratchHandler) ApplyStrokes(c *fiber.Ctx) error {
	id := c.Params("id")

	var req model.StrokeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	card, err := h.service.ApplyStrokes(c.Context(), id, req.Events)
	if err != nil {
		return writeServiceError(c, err, id, "apply strokes")
	}

	log.Debug().
		Str("card_id", id).
		Int("events", len(req.Events)).
		Int("progress", card.Progress).
		Bool("revealed", card.Revealed).
		Msg("strokes applied")

	return c.JSON(card)
}

// Resize handles PUT /api/scratch-cards/:id/size requests.
func (h *ScratchHandler) Resize(c *fiber.Ctx) error {
	id := c.Params("id")

	var req model.ResizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	card, err := h.service.Resize(c.Context(), id, *req.ContainerWidth)
	if err != nil {
		return writeServiceError(c, err, id, "resize card")
	}
	return c.JSON(card)
}

// Surface handles GET /api/scratch-cards/:id/surface.png requests.
func (h *ScratchHandler) Surface(c *fiber.Ctx) error {
	id := c.Params("id")

	var buf bytes.Buffer
	if err := h.service.RenderSurface(c.Context(), id, &buf); err != nil {
		return writeServiceError(c, err, id, "render surface")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(buf.Bytes())
}

// CloseCard handles DELETE /api/scratch-cards/:id requests.
func (h *ScratchHandler) CloseCard(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.service.CloseCard(c.Context(), id); err != nil {
		return writeServiceError(c, err, id, "close card")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListReveals handles GET /api/users/:user_id/reveals requests.
func (h *ScratchHandler) ListReveals(c *fiber.Ctx) error {
	userID := c.Params("user_id")

	reveals, err := h.service.ListReveals(c.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: user_id is required"})
		}
		log.Error().Err(err).Str("user_id", userID).Msg("failed to list reveals")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(reveals)
}

// Register mounts the scratch card and reveal routes on the router.
func (h *ScratchHandler) Register(r fiber.Router) {
	cards := r.Group("/scratch-cards")
	cards.Post("/", h.StartCard)
	cards.Get("/:id", h.GetCard)
	cards.Post("/:id/strokes", h.ApplyStrokes)
	cards.Put("/:id/size", h.Resize)
	cards.Get("/:id/surface.png", h.Surface)
	cards.Delete("/:id", h.CloseCard)

	r.Get("/users/:user_id/reveals", h.ListReveals)
}
