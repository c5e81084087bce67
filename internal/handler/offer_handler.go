package handler

import (
	"context"
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
	"github.com/fairyhunter13/parcelace-scratch/internal/service"
)

// OfferServiceInterface defines the interface for reward offer business logic.
type OfferServiceInterface interface {
	CreateOffer(ctx context.Context, req *model.CreateOfferRequest) (*model.RewardOffer, error)
}

// OfferHandler handles HTTP requests for reward offer operations.
type OfferHandler struct {
	service   OfferServiceInterface
	validator *validator.Validate
}

// NewOfferHandler creates a new OfferHandler with the given service and validator.
func NewOfferHandler(svc OfferServiceInterface, v *validator.Validate) *OfferHandler {
	return &OfferHandler{service: svc, validator: v}
}

// jsonFields maps struct field names to the names clients send.
var jsonFields = map[string]string{
	"Title":              "title",
	"Description":        "description",
	"DiscountCode":       "discount_code",
	"DiscountPercentage": "discount_percentage",
	"ValidUntil":         "valid_until",
	"UserID":             "user_id",
	"ContainerWidth":     "container_width",
	"OfferID":            "offer_id",
	"Events":             "events",
	"Type":               "type",
}

// formatValidationError converts the first validator error into a client message.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field, ok := jsonFields[fe.Field()]
	if !ok {
		field = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "invalid request: " + field + " exceeds maximum of " + fe.Param()
		}
		return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
	case "min":
		return "invalid request: " + field + " must have at least " + fe.Param()
	case "gte":
		return "invalid request: " + field + " must be at least " + fe.Param()
	case "lte":
		return "invalid request: " + field + " must be at most " + fe.Param()
	case "oneof":
		return "invalid request: " + field + " must be one of: " + fe.Param()
	case "promocode":
		return "invalid request: " + field + " must be 3-32 upper-case letters, digits, '-' or '_'"
	case "uuid":
		return "invalid request: " + field + " must be a UUID"
	default:
		return "invalid request: " + field + " is invalid"
	}
}

// CreateOffer handles POST /api/offers requests to create a reward offer.
func (h *OfferHandler) CreateOffer(c *fiber.Ctx) error {
	var req model.CreateOfferRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	offer, err := h.service.CreateOffer(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrOfferExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "offer already exists"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: discount_percentage must be between 0 and 100"})
		}
		log.Error().Err(err).Str("discount_code", req.DiscountCode).Msg("failed to create offer")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("offer_id", offer.ID).
		Str("discount_code", offer.DiscountCode).
		Bool("active", offer.Active).
		Msg("offer created")

	return c.Status(fiber.StatusCreated).JSON(offer)
}
