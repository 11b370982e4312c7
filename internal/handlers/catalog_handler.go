package handlers

import (
	"venturekit/internal/catalog"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves the static module catalog
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// List returns every catalog module in order
// GET /api/catalog
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"modules": h.catalog.All()})
}

// Get returns one catalog definition
// GET /api/catalog/:moduleId
func (h *CatalogHandler) Get(c *fiber.Ctx) error {
	def, ok := h.catalog.Get(c.Params("moduleId"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown module",
		})
	}
	return c.JSON(def)
}
