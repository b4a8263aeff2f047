package config

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the config routes with the Fiber app.
func RegisterRoutes(app *fiber.App, manager *Manager) {
	app.Get("/config", func(c *fiber.Ctx) error {
		if c.Query("format") == "yaml" {
			c.Set(fiber.HeaderContentType, "application/yaml")
			return c.SendString(manager.GetYAML())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(manager.GetJSON())
	})
}
