package handlers

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"github.com/radustef/mangapipe/internal/models"
	"github.com/radustef/mangapipe/internal/repository"
)

var validQueueStatuses = map[string]bool{
	models.QueueStatusPending:    true,
	models.QueueStatusProcessing: true,
	models.QueueStatusCompleted:  true,
	models.QueueStatusFailed:     true,
}

type QueueHandler struct {
	repo *repository.QueueRepository
}

func NewQueueHandler(db *sql.DB) *QueueHandler {
	return &QueueHandler{repo: repository.NewQueueRepository(db)}
}

func (h *QueueHandler) List(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && !validQueueStatuses[status] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid status filter"})
	}

	items, err := h.repo.List(status, c.QueryInt("limit"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to list queue"})
	}

	return c.JSON(fiber.Map{"items": items})
}

func (h *QueueHandler) GetByRef(c *fiber.Ctx) error {
	item, err := h.repo.GetByRef(c.Params("ref"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load queue item"})
	}
	if item == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "queue item not found"})
	}

	return c.JSON(item)
}

// Retry puts a failed item back in the pending backlog for the worker.
func (h *QueueHandler) Retry(c *fiber.Ctx) error {
	ref := c.Params("ref")

	item, err := h.repo.GetByRef(ref)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load queue item"})
	}
	if item == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "queue item not found"})
	}

	requeued, err := h.repo.Requeue(ref)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to requeue item"})
	}
	if !requeued {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "only failed items can be retried"})
	}

	item, err = h.repo.GetByRef(ref)
	if err != nil || item == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load queue item"})
	}
	return c.JSON(item)
}
