package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CardCounter reports how many scratch cards are currently mounted.
type CardCounter interface {
	Len() int
}

// HealthHandler reports database reachability and the mounted card count.
type HealthHandler struct {
	pool  Pinger
	cards CardCounter
}

// NewHealthHandler creates a HealthHandler. cards may be nil.
func NewHealthHandler(pool Pinger, cards CardCounter) *HealthHandler {
	return &HealthHandler{pool: pool, cards: cards}
}

// Check handles GET /health.
// 200 {"status": "healthy", "mounted_cards": n} when the database answers,
// 503 {"status": "unhealthy", "error": "..."} otherwise. Mounted cards keep
// working without the database, but reveals cannot be recorded.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	mounted := 0
	if h.cards != nil {
		mounted = h.cards.Len()
	}

	if err := h.pool.Ping(c.Context()); err != nil {
		log.Error().Err(err).Int("mounted_cards", mounted).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":        "unhealthy",
			"error":         "database connection failed",
			"mounted_cards": mounted,
		})
	}
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"mounted_cards": mounted,
	})
}
