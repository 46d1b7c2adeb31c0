package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/acme/voicedrop/internal/app"
	amdsvc "github.com/acme/voicedrop/internal/service/amd"
	blastsvc "github.com/acme/voicedrop/internal/service/blast"
)

// HandlerSet bundles all HTTP handlers.
type HandlerSet struct {
	container *app.Container
	blasts    *blastsvc.Service
	amd       *amdsvc.Correlator
}

// NewHandlerSet creates a new handler bundle.
func NewHandlerSet(container *app.Container) *HandlerSet {
	services := container.Services()
	return &HandlerSet{
		container: container,
		blasts:    services.Blast,
		amd:       services.AMD,
	}
}

// Register wires all routes onto the fiber app.
func (h *HandlerSet) Register(app *fiber.App) {
	app.Get("/healthz", h.health)

	// Provider callbacks live outside the versioned API: the URLs are
	// baked into in-flight calls and must stay stable.
	app.Post("/twiml/voicemail", h.twimlVoicemail)
	app.Post("/webhooks/amd", h.amdWebhook)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Post("/blasts", h.runBlast)

	tenants := v1.Group("/tenants")
	tenants.Get("/:id/call-logs", h.listCallLogs)
	tenants.Get("/:id/stats", h.tenantStats)
}

// ErrorHandler provides centralized error responses.
func (h *HandlerSet) ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	if fiberErr, ok := err.(*fiber.Error); ok {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code == fiber.StatusInternalServerError {
		h.container.Logger.Error("request failed", zap.Error(err))
	}

	return ctx.Status(code).JSON(fiber.Map{
		"error":    message,
		"code":     errorCode(code),
		"trace_id": ctx.GetRespHeader("Trace-Id"),
	})
}

func (h *HandlerSet) health(ctx *fiber.Ctx) error {
	healthCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
	defer cancel()

	errs := make(map[string]string)

	if err := h.container.Postgres.DB().PingContext(healthCtx); err != nil {
		errs["postgres"] = err.Error()
	}

	if err := h.container.Redis.Inner().Ping(healthCtx).Err(); err != nil {
		errs["redis"] = err.Error()
	}

	if err := h.container.Scylla.Session().Query("SELECT now() FROM system.local").WithContext(healthCtx).Exec(); err != nil {
		errs["scylla"] = err.Error()
	}

	status := fiber.StatusOK
	if len(errs) > 0 {
		status = fiber.StatusServiceUnavailable
	}

	return ctx.Status(status).JSON(fiber.Map{"status": "ok", "errors": errs})
}
