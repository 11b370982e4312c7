package handlers

import (
	"log"

	"venturekit/internal/models"
	"venturekit/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProfileHandler handles business profile HTTP requests
type ProfileHandler struct {
	profileService *services.ProfileService
	contextService *services.ContextService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService *services.ProfileService, contextService *services.ContextService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		contextService: contextService,
	}
}

// Get retrieves the user's business profile
// GET /api/profile
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	profile, err := h.profileService.Get(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load profile",
		})
	}
	if profile == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not created yet",
		})
	}

	return c.JSON(profile)
}

// Update upserts the user's business profile and refreshes the context
// snapshot so downstream consumers see the change immediately.
// PUT /api/profile
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var profile models.CompleteProfile
	if err := c.BodyParser(&profile); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	profile.UserID = userID

	if err := h.profileService.Upsert(c.Context(), &profile); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save profile",
		})
	}

	if h.contextService != nil {
		// Best effort: the profile write already succeeded and the snapshot
		// catches up on the next refresh or sweep.
		if _, err := h.contextService.RefreshUserContext(c.Context(), userID); err != nil {
			log.Printf("⚠️  [PROFILE] Context refresh after profile update failed for user %s: %v", userID, err)
		}
	}

	return c.JSON(&profile)
}
