package handlers

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/radustef/mangapipe/internal/models"
	"github.com/radustef/mangapipe/internal/repository"
	"github.com/radustef/mangapipe/internal/scrape"
)

type HealthHandler struct {
	db       *sql.DB
	registry *scrape.Registry
	queue    *repository.QueueRepository
}

func NewHealthHandler(db *sql.DB, registry *scrape.Registry) *HealthHandler {
	return &HealthHandler{
		db:       db,
		registry: registry,
		queue:    repository.NewQueueRepository(db),
	}
}

// Check reports the pieces an operator cares about when imports stall:
// whether sqlite answers, how many adapters are registered, and how deep
// the pending backlog is.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := h.db.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"db":       "down",
			"adapters": len(h.registry.List("")),
			"time":     now,
		})
	}

	pending, err := h.queue.CountByStatus(models.QueueStatusPending)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"db":       "up",
			"adapters": len(h.registry.List("")),
			"time":     now,
		})
	}

	return c.JSON(fiber.Map{
		"status":       "ok",
		"db":           "up",
		"adapters":     len(h.registry.List("")),
		"queuePending": pending,
		"time":         now,
	})
}
