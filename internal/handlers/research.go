package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"deepresearch/internal/models"
	"deepresearch/internal/services"
)

// ResearchHandler handles research session HTTP requests
type ResearchHandler struct {
	research *services.ResearchService
}

// NewResearchHandler creates a new research handler
func NewResearchHandler(research *services.ResearchService) *ResearchHandler {
	return &ResearchHandler{research: research}
}

// Create starts a new research session and returns its ID immediately.
// The aggregation runs in the background; clients poll Get until the
// session reaches a terminal state.
// POST /api/research
func (h *ResearchHandler) Create(c *fiber.Ctx) error {
	var req models.CreateResearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   fiber.Map{"message": "Invalid request body"},
		})
	}

	session, err := h.research.StartResearch(req.Query, req.Options)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyQuery):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"message": "Query is required"},
			})
		case errors.Is(err, services.ErrDraining):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"message": "Server is shutting down"},
			})
		default:
			log.Printf("❌ [RESEARCH] Failed to start session: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"message": "Internal server error"},
			})
		}
	}

	log.Printf("🔬 [RESEARCH] Session %s started for '%s'", session.ID, session.Query)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"sessionId": session.ID,
			"status":    "running",
			"message":   "Comprehensive AI research session started",
		},
	})
}

// Get returns one research session, including its result once completed.
// GET /api/research/:sessionId
func (h *ResearchHandler) Get(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")

	session, err := h.research.Get(sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"message": "Research session not found"},
			})
		}
		log.Printf("❌ [RESEARCH] Failed to load session %s: %v", sessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   fiber.Map{"message": "Internal server error"},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    session,
	})
}

// List returns summaries of all sessions (no result payloads), newest first.
// GET /api/research
func (h *ResearchHandler) List(c *fiber.Ctx) error {
	summaries, err := h.research.List()
	if err != nil {
		log.Printf("❌ [RESEARCH] Failed to list sessions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   fiber.Map{"message": "Internal server error"},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    summaries,
	})
}
