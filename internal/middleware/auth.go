package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"management-web/internal/config"
	"management-web/internal/utils"
)

// AuthMiddleware accepts a Bearer access token and stores its claims in Locals.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization header is required", nil)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid authorization header format", nil)
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// CurrentUser returns the authenticated user id and role.
func CurrentUser(c *fiber.Ctx) (int, string) {
	userID, _ := c.Locals("user_id").(int)
	role, _ := c.Locals("role").(string)
	return userID, role
}
