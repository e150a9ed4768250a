package api

import "github.com/gofiber/fiber/v2"

type memberInput struct {
	UserID      uint   `json:"user_id" form:"user_id"`
	ProjectRole string `json:"project_role" form:"project_role"`
}

func (handler *Handler) ListMembers(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	members, err := handler.membershipService.ListMembers(c.UserContext(), projectID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(members)
}

func (handler *Handler) AddMember(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := memberInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	member, err := handler.membershipService.AddMember(c.UserContext(), projectID, input.UserID, input.ProjectRole, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

func (handler *Handler) ChangeMemberRole(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := memberInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	member, err := handler.membershipService.ChangeMemberRole(c.UserContext(), projectID, userID, input.ProjectRole, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(member)
}

func (handler *Handler) RemoveMember(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := handler.membershipService.RemoveMember(c.UserContext(), projectID, userID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
