package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/radustef/mangapipe/internal/repository"
	"github.com/radustef/mangapipe/internal/scrape"
)

type SourcesHandler struct {
	registry *scrape.Registry
	sources  *repository.SourceRepository
}

func NewSourcesHandler(registry *scrape.Registry, sources *repository.SourceRepository) *SourcesHandler {
	return &SourcesHandler{registry: registry, sources: sources}
}

type sourceItem struct {
	scrape.Descriptor
	Enabled bool `json:"enabled"`
}

func (h *SourcesHandler) List(c *fiber.Ctx) error {
	kind := c.Query("kind")
	switch kind {
	case "", scrape.KindMetadata, scrape.KindContent:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "kind must be metadata or content"})
	}

	disabled, err := h.sources.DisabledKeys()
	if err != nil {
		slog.Error("failed to list disabled sources", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to list sources"})
	}

	descriptors := h.registry.List(kind)
	items := make([]sourceItem, 0, len(descriptors))
	for _, descriptor := range descriptors {
		_, off := disabled[descriptor.Key]
		items = append(items, sourceItem{Descriptor: descriptor, Enabled: !off})
	}

	return c.JSON(fiber.Map{"items": items})
}
