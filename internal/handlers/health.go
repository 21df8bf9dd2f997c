package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"deepresearch/internal/services"
)

// HealthHandler reports service liveness
type HealthHandler struct {
	research  *services.ResearchService
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(research *services.ResearchService) *HealthHandler {
	return &HealthHandler{
		research:  research,
		startedAt: time.Now(),
	}
}

// Check returns service status with active research count
// GET /health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "healthy",
		"service":        "deepresearch",
		"activeResearch": h.research.ActiveRuns(),
		"uptime":         time.Since(h.startedAt).String(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
