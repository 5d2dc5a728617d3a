package middleware

import (
	"log"

	"prediction-league-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserContextMiddleware resolves the authenticated user from the identity
// the gateway attaches as X-User-ID. Session mechanics live upstream; this
// service only needs to know who is asking.
func UserContextMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through the gateway with auth context",
			})
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unknown user"})
			}
			log.Printf("ERROR resolving user %s: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		c.Locals("user_id", user.ID)
		c.Locals("is_admin", user.IsAdmin)
		return c.Next()
	}
}

// AdminOnlyMiddleware guards the administrative surface (outcome writes,
// fixture creation, manual recalculation).
func AdminOnlyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, _ := c.Locals("is_admin").(bool)
		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "you do not have permission to perform this action",
			})
		}
		return c.Next()
	}
}
