package handlers

import (
	"errors"

	"venturekit/internal/models"
	"venturekit/internal/services"

	"github.com/gofiber/fiber/v2"
)

// GenerationHandler handles text generation HTTP requests
type GenerationHandler struct {
	generationService *services.GenerationService
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(generationService *services.GenerationService) *GenerationHandler {
	return &GenerationHandler{generationService: generationService}
}

type generateRequest struct {
	Capability   string          `json:"capability"`
	Priority     models.Priority `json:"priority"`
	SystemPrompt string          `json:"system_prompt"`
	Prompt       string          `json:"prompt"`
	MaxTokens    int             `json:"max_tokens"`
	Temperature  float64         `json:"temperature"`
	ExpectJSON   bool            `json:"expect_json"`
	Cacheable    bool            `json:"cacheable"`
}

// Generate runs one generation request. When the provider stays unreachable
// past the retry budget the handler degrades to the offline fallback instead
// of surfacing an error to the user.
// POST /api/generate
func (h *GenerationHandler) Generate(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Capability == "" || req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "capability and prompt are required",
		})
	}

	genReq := models.GenerationRequest{
		Capability:   req.Capability,
		Priority:     req.Priority,
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.Prompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		ExpectJSON:   req.ExpectJSON,
	}
	if req.Cacheable {
		genReq.CacheKey = services.CacheKey(req.Capability, userID, req.SystemPrompt, req.Prompt)
	}

	result, err := h.generationService.Generate(c.Context(), genReq)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRetryExhausted):
			return c.JSON(h.generationService.FallbackResponse(req.Capability))
		case errors.Is(err, services.ErrAuthentication):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Generation provider rejected credentials",
			})
		case errors.Is(err, services.ErrMalformedResponse):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Generation provider returned an unusable response",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal error",
			})
		}
	}

	return c.JSON(result)
}

// Models lists the model registry lineup
// GET /api/generate/models
func (h *GenerationHandler) Models(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"models": h.generationService.Registry().All()})
}
