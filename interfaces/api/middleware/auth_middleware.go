package middleware

import (
	"github.com/gofiber/fiber/v2"

	"eals-backend/pkg/logger"
	"eals-backend/pkg/utils"
)

// Protected validates admin tokens and sets the admin context. The HR
// console endpoints sit behind it; the kiosk endpoints do not.
func Protected(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.UnauthorizedResponse(c, "Missing authorization header")
		}

		token := utils.ExtractTokenFromHeader(authHeader)
		if token == "" {
			return utils.UnauthorizedResponse(c, "Invalid authorization header format")
		}

		admin, err := utils.ValidateToken(token, jwtSecret)
		if err != nil {
			logger.Warn(logger.CategoryAuth, "token_validation", "token rejected", map[string]interface{}{
				"path":  c.Path(),
				"error": err.Error(),
			})
			switch err {
			case utils.ErrExpiredToken:
				return utils.UnauthorizedResponse(c, "Token has expired")
			case utils.ErrMissingToken:
				return utils.UnauthorizedResponse(c, "Missing token")
			default:
				return utils.UnauthorizedResponse(c, "Invalid token")
			}
		}

		c.Locals("admin", admin)
		return c.Next()
	}
}
