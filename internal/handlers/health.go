package handlers

import (
	"time"

	"venturekit/internal/database"
	"venturekit/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	mongodb      *database.MongoDB
	redisService *services.RedisService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(mongodb *database.MongoDB, redisService *services.RedisService) *HealthHandler {
	return &HealthHandler{
		mongodb:      mongodb,
		redisService: redisService,
	}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := "healthy"

	mongoStatus := "ok"
	if h.mongodb != nil {
		if err := h.mongodb.Ping(c.Context()); err != nil {
			mongoStatus = "down"
			status = "degraded"
		}
	} else {
		mongoStatus = "disabled"
	}

	redisStatus := "ok"
	if h.redisService != nil {
		if err := h.redisService.Ping(c.Context()); err != nil {
			redisStatus = "down"
			status = "degraded"
		}
	} else {
		redisStatus = "disabled"
	}

	return c.JSON(fiber.Map{
		"status":    status,
		"mongodb":   mongoStatus,
		"redis":     redisStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
