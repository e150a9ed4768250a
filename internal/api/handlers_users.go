package api

import "github.com/gofiber/fiber/v2"

type changeRoleInput struct {
	Role string `json:"role" form:"role"`
}

func (handler *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := handler.userService.ListUsers(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

func (handler *Handler) ChangeUserRole(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := changeRoleInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	user, err := handler.userService.ChangeUserRole(c.UserContext(), userID, input.Role, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

func (handler *Handler) GetLeaderStatus(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	status, err := handler.membershipService.GetLeaderStatus(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(status)
}
