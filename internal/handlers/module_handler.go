package handlers

import (
	"context"
	"errors"

	"venturekit/internal/models"
	"venturekit/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ModuleHandler handles module lifecycle HTTP requests
type ModuleHandler struct {
	moduleService *services.ModuleService
}

// NewModuleHandler creates a new ModuleHandler
func NewModuleHandler(moduleService *services.ModuleService) *ModuleHandler {
	return &ModuleHandler{moduleService: moduleService}
}

type moduleRequest struct {
	Metadata map[string]interface{} `json:"metadata"`
}

type progressRequest struct {
	Progress int                    `json:"progress"`
	Metadata map[string]interface{} `json:"metadata"`
}

type subModuleRequest struct {
	Data map[string]interface{} `json:"data"`
}

// List returns all module records for the user
// GET /api/modules
func (h *ModuleHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	activations, err := h.moduleService.ListActivations(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list modules",
		})
	}

	return c.JSON(fiber.Map{"modules": activations})
}

// Get returns one module record
// GET /api/modules/:moduleId
func (h *ModuleHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	activation, err := h.moduleService.GetActivation(c.Context(), userID, c.Params("moduleId"))
	if err != nil {
		return moduleError(c, err)
	}
	if activation == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Module not activated",
		})
	}

	return c.JSON(activation)
}

// Activate starts or restarts a module
// POST /api/modules/:moduleId/activate
func (h *ModuleHandler) Activate(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req moduleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	moduleID := c.Params("moduleId")

	unlocked, err := h.moduleService.CheckDependencies(c.Context(), userID, moduleID)
	if err != nil {
		return moduleError(c, err)
	}
	if !unlocked {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Module dependencies not completed",
		})
	}

	activation, err := h.moduleService.Activate(c.Context(), userID, moduleID, req.Metadata)
	if err != nil {
		return moduleError(c, err)
	}

	return c.JSON(activation)
}

// UpdateProgress sets a module's progress
// PUT /api/modules/:moduleId/progress
func (h *ModuleHandler) UpdateProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req progressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	activation, err := h.moduleService.UpdateProgress(c.Context(), userID, c.Params("moduleId"), req.Progress, req.Metadata)
	if err != nil {
		return moduleError(c, err)
	}

	return c.JSON(activation)
}

// Pause pauses an active module
// POST /api/modules/:moduleId/pause
func (h *ModuleHandler) Pause(c *fiber.Ctx) error {
	return h.transition(c, h.moduleService.Pause)
}

// Resume resumes a paused module
// POST /api/modules/:moduleId/resume
func (h *ModuleHandler) Resume(c *fiber.Ctx) error {
	return h.transition(c, h.moduleService.Resume)
}

type transitionFunc func(ctx context.Context, userID, moduleID string) (*models.ModuleActivation, error)

// transition runs a pause/resume style state change. A nil record with no
// error means the module was not in the expected starting state; that is a
// conflict for the caller, not a server failure.
func (h *ModuleHandler) transition(c *fiber.Ctx, op transitionFunc) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	activation, err := op(c.Context(), userID, c.Params("moduleId"))
	if err != nil {
		return moduleError(c, err)
	}
	if activation == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Module is not in a state that allows this transition",
		})
	}

	return c.JSON(activation)
}

// CompleteSubModule marks a sub-module done and recomputes module progress
// POST /api/modules/:moduleId/submodules/:subModuleId/complete
func (h *ModuleHandler) CompleteSubModule(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req subModuleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	activation, err := h.moduleService.CompleteSubModule(c.Context(), userID, c.Params("moduleId"), c.Params("subModuleId"), req.Data)
	if err != nil {
		return moduleError(c, err)
	}

	return c.JSON(activation)
}

// Dependencies reports whether a module is unlocked for the user
// GET /api/modules/:moduleId/dependencies
func (h *ModuleHandler) Dependencies(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	unlocked, err := h.moduleService.CheckDependencies(c.Context(), userID, c.Params("moduleId"))
	if err != nil {
		return moduleError(c, err)
	}

	return c.JSON(fiber.Map{"unlocked": unlocked})
}

// Suggestions lists unlocked modules the user has not started yet
// GET /api/modules/suggestions
func (h *ModuleHandler) Suggestions(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	suggestions, err := h.moduleService.NextSuggestions(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute suggestions",
		})
	}

	return c.JSON(fiber.Map{"suggestions": suggestions})
}

// moduleError maps service failures to HTTP statuses.
func moduleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUnknownModule):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown module",
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Module not activated",
		})
	case errors.Is(err, services.ErrStoreUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Storage temporarily unavailable, please retry",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal error",
		})
	}
}
