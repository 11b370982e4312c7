package handlers

import (
	"venturekit/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ConversationHandler records conversation activity feeding the context
// engine's aggregates.
type ConversationHandler struct {
	conversationService *services.ConversationService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(conversationService *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

type recordMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
}

type topicMemoryRequest struct {
	Topic   string  `json:"topic"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
}

// RecordMessage bumps the user's conversation counters
// POST /api/conversations/message
func (h *ConversationHandler) RecordMessage(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req recordMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ConversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "conversation_id is required",
		})
	}

	if err := h.conversationService.RecordMessage(c.Context(), userID, req.ConversationID, req.Title); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record message",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SaveTopic upserts a topic memory with its relevance score
// POST /api/conversations/topics
func (h *ConversationHandler) SaveTopic(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req topicMemoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "topic is required",
		})
	}

	if err := h.conversationService.SaveTopicMemory(c.Context(), userID, req.Topic, req.Summary, req.Score); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save topic",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Stats returns the user's conversation aggregates
// GET /api/conversations/stats
func (h *ConversationHandler) Stats(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	stats, err := h.conversationService.Stats(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load stats",
		})
	}

	return c.JSON(stats)
}
