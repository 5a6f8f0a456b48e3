package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/radustef/mangapipe/internal/importer"
)

type importRequest struct {
	Action  string   `json:"action"`
	Source  string   `json:"source"`
	Query   string   `json:"query"`
	URL     string   `json:"url"`
	MangaID *int64   `json:"mangaId"`
	Chapter *float64 `json:"chapter"`
}

type ImportHandler struct {
	service *importer.Service
}

func NewImportHandler(service *importer.Service) *ImportHandler {
	return &ImportHandler{service: service}
}

// Dispatch routes one import request by its action: "search" lists
// candidate titles on a source, "import" pulls a manga into the catalog,
// "fetch-images" resolves the page images of an already-imported chapter.
func (h *ImportHandler) Dispatch(c *fiber.Ctx) error {
	var req importRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}

	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "source is required"})
	}

	switch req.Action {
	case "search":
		return h.search(c, req)
	case "import":
		return h.importManga(c, req)
	case "fetch-images":
		return h.fetchImages(c, req)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "action must be search, import or fetch-images"})
	}
}

func (h *ImportHandler) search(c *fiber.Ctx, req importRequest) error {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "query is required"})
	}

	results, err := h.service.Search(c.Context(), req.Source, query)
	if err != nil {
		if errors.Is(err, importer.ErrUnknownSource) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": err.Error()})
	}

	return c.JSON(fiber.Map{"items": results})
}

func (h *ImportHandler) importManga(c *fiber.Ctx, req importRequest) error {
	pageURL := strings.TrimSpace(req.URL)
	if pageURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "url is required"})
	}

	result, err := h.service.Import(c.Context(), req.Source, pageURL)
	if err != nil {
		if errors.Is(err, importer.ErrUnknownSource) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		// The failure is already recorded on the queue item; hand back the
		// ref so the caller can inspect and retry it.
		status := fiber.StatusUnprocessableEntity
		if result != nil && result.QueueRef != "" {
			return c.Status(status).JSON(fiber.Map{"message": err.Error(), "queueRef": result.QueueRef})
		}
		return c.Status(status).JSON(fiber.Map{"message": err.Error()})
	}

	if result.Outcome == importer.OutcomeImported {
		return c.Status(fiber.StatusCreated).JSON(result)
	}
	return c.JSON(result)
}

func (h *ImportHandler) fetchImages(c *fiber.Ctx, req importRequest) error {
	chapterURL := strings.TrimSpace(req.URL)
	if chapterURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "url is required"})
	}
	if req.MangaID == nil || req.Chapter == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "mangaId and chapter are required"})
	}

	chapter, err := h.service.FetchImages(c.Context(), req.Source, *req.MangaID, *req.Chapter, chapterURL)
	if err != nil {
		if errors.Is(err, importer.ErrUnknownSource) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	}

	return c.JSON(chapter)
}
