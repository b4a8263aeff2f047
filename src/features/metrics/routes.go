package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// RegisterRoutes exposes the Prometheus registry on /metrics.
func RegisterRoutes(app *fiber.App, recorder *Recorder) {
	app.Get("/metrics", adaptor.HTTPHandler(recorder.Handler()))
}
