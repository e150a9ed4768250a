package api

import "github.com/gofiber/fiber/v2"

func (handler *Handler) ListNotifications(c *fiber.Ctx) error {
	notifications, err := handler.notificationService.ListNotifications(c.UserContext(), currentUserID(c), c.QueryBool("unread", false))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(notifications)
}

func (handler *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	notificationID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := handler.notificationService.MarkRead(c.UserContext(), notificationID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
