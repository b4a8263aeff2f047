package watching

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the process routes with the Fiber app.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/status", handler.GetStatus)
	app.Get("/history", handler.GetHistory)
	app.Post("/restart", handler.PostRestart)
}
