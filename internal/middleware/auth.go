package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// UserAuth resolves the caller's identity and stores it in request locals.
// The server sits behind the platform gateway, which authenticates the
// session and forwards the user id in the X-User-ID header; requests that
// arrive without it are rejected.
func UserAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
