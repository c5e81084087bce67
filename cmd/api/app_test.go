package main

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/parcelace-scratch/internal/handler"
	"github.com/fairyhunter13/parcelace-scratch/internal/validator"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testApp() *fiber.App {
	app := newApp()
	v := validator.New()
	registerRoutes(app,
		handler.NewHealthHandler(okPinger{}, nil),
		handler.NewOfferHandler(nil, v),
		handler.NewScratchHandler(nil, v),
	)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(respBody)
}

func TestRoutes_Health(t *testing.T) {
	status, body := do(t, testApp(), "GET", "/health", "")

	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)
}

func TestRoutes_ValidationBeforeService(t *testing.T) {
	app := testApp()

	status, body := do(t, app, "POST", "/api/scratch-cards", `{"user_id": "user_001"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "container_width")

	status, _ = do(t, app, "POST", "/api/offers", `{"title": ""}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	status, body := do(t, testApp(), "GET", "/api/nope", "")

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Contains(t, body, `"error":`)
}

func TestErrorHandler_BodyTooLarge(t *testing.T) {
	big := `{"user_id": "` + strings.Repeat("u", bodyLimit) + `", "container_width": 400}`

	status, _ := do(t, testApp(), "POST", "/api/scratch-cards", big)

	assert.Equal(t, fiber.StatusRequestEntityTooLarge, status)
}

func TestErrorHandler_RecoveredPanic(t *testing.T) {
	app := newApp()
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	status, body := do(t, app, "GET", "/boom", "")

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.JSONEq(t, `{"error":"internal server error"}`, body)
}
