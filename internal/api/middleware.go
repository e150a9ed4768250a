package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

const (
	AuthCookieName = "boardkeeper_auth"
	contextUserKey = "current_user"
)

func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(contextUserKey).(*models.User)
	return user, ok
}

func currentUserID(c *fiber.Ctx) uint {
	user, ok := currentUser(c)
	if !ok || user == nil {
		return 0
	}
	return user.ID
}
