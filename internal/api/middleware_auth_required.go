package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/boardkeeper/internal/services"
)

func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	user, err := handler.authenticateRequest(c)
	if err != nil {
		return respondServiceError(c, services.ErrUnauthorized)
	}

	c.Locals(contextUserKey, user)
	return c.Next()
}

// AdminOnly must run after AuthRequired.
func (handler *Handler) AdminOnly(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return respondServiceError(c, services.ErrUnauthorized)
	}
	if !services.IsAdmin(user.GlobalRole) {
		return respondServiceError(c, services.ErrForbidden)
	}
	return c.Next()
}
