package handlers

import (
	"errors"

	"venturekit/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ContextHandler handles business context HTTP requests
type ContextHandler struct {
	contextService *services.ContextService
	profileService *services.ProfileService
}

// NewContextHandler creates a new ContextHandler
func NewContextHandler(contextService *services.ContextService, profileService *services.ProfileService) *ContextHandler {
	return &ContextHandler{
		contextService: contextService,
		profileService: profileService,
	}
}

// Get returns the stored business context snapshot
// GET /api/context
func (h *ContextHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	snapshot, err := h.contextService.GetStored(c.Context(), userID)
	if err != nil {
		return contextError(c, err)
	}
	if snapshot == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No context snapshot yet",
		})
	}

	return c.JSON(snapshot)
}

// Refresh re-synthesizes and persists the user's context
// POST /api/context/refresh
func (h *ContextHandler) Refresh(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	wrote, err := h.contextService.RefreshUserContext(c.Context(), userID)
	if err != nil {
		return contextError(c, err)
	}

	return c.JSON(fiber.Map{"refreshed": wrote})
}

// Preview synthesizes the context without persisting it
// GET /api/context/preview
func (h *ContextHandler) Preview(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	profile, err := h.profileService.Get(c.Context(), userID)
	if err != nil {
		return contextError(c, err)
	}

	result, err := h.contextService.Synthesize(c.Context(), userID, profile, nil)
	if err != nil {
		return contextError(c, err)
	}

	return c.JSON(fiber.Map{
		"rendered": result.Rendered,
		"hash":     result.Hash,
	})
}

func contextError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrStoreUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Storage temporarily unavailable, please retry",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal error",
	})
}
