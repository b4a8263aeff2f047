package watching

import (
	"log/slog"

	"github.com/contre95/pew/src/reload"
	"github.com/gofiber/fiber/v2"
)

// Handler serves the state of the supervised process over HTTP.
type Handler struct {
	runner  *Runner
	history reload.History
	limit   int
}

// NewHandler creates a new watching handler. limit is the default number of
// history records returned.
func NewHandler(runner *Runner, history reload.History, limit int) *Handler {
	if limit <= 0 {
		limit = 50
	}
	return &Handler{runner: runner, history: history, limit: limit}
}

// GetStatus returns the supervisor state and the current process.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.runner.Status())
}

// GetHistory returns the most recent process runs, newest first.
func (h *Handler) GetHistory(c *fiber.Ctx) error {
	records := []reload.ProcessRecord{}
	if h.history == nil {
		return c.JSON(records)
	}
	limit := c.QueryInt("limit", h.limit)
	if limit <= 0 {
		limit = h.limit
	}
	recent, err := h.history.Recent(c.Context(), limit)
	if err != nil {
		slog.Error("Error loading process history", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading process history")
	}
	if recent != nil {
		records = recent
	}
	return c.JSON(records)
}

// PostRestart schedules a restart. It is debounced like a file change.
func (h *Handler) PostRestart(c *fiber.Ctx) error {
	slog.Info("Restart requested over HTTP", "ip", c.IP())
	h.runner.Trigger()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "restart scheduled"})
}
