package main

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/parcelace-scratch/internal/handler"
)

const bodyLimit = 1 * 1024 * 1024

// newApp builds the Fiber app with middleware and a JSON error handler.
// Stroke batches are small; anything over bodyLimit is rejected with 413.
func newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "ParcelAce Scratch",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())
	return app
}

// errorHandler renders framework errors (unknown routes, oversized bodies,
// recovered panics) in the same {"error": ...} shape the handlers use.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// registerRoutes mounts health, offer and scratch card routes.
func registerRoutes(app *fiber.App, health *handler.HealthHandler, offers *handler.OfferHandler, scratch *handler.ScratchHandler) {
	app.Get("/health", health.Check)

	api := app.Group("/api")
	api.Post("/offers", offers.CreateOffer)
	scratch.Register(api)
}
