package api

import "github.com/gofiber/fiber/v2"

type subtaskInput struct {
	Title      string `json:"title" form:"title"`
	AssigneeID *uint  `json:"assignee_id"`
}

type subtaskAssigneeInput struct {
	AssigneeID *uint `json:"assignee_id"`
}

func (handler *Handler) ListSubtasks(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	subtasks, err := handler.subtaskService.ListSubtasks(c.UserContext(), cardID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(subtasks)
}

func (handler *Handler) CreateSubtask(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := subtaskInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	subtask, err := handler.subtaskService.CreateSubtask(c.UserContext(), cardID, input.Title, input.AssigneeID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(subtask)
}

func (handler *Handler) ToggleSubtask(c *fiber.Ctx) error {
	subtaskID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	subtask, err := handler.subtaskService.ToggleSubtask(c.UserContext(), subtaskID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(subtask)
}

func (handler *Handler) SetSubtaskAssignee(c *fiber.Ctx) error {
	subtaskID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := subtaskAssigneeInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	subtask, err := handler.subtaskService.SetSubtaskAssignee(c.UserContext(), subtaskID, input.AssigneeID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(subtask)
}

func (handler *Handler) DeleteSubtask(c *fiber.Ctx) error {
	subtaskID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := handler.subtaskService.DeleteSubtask(c.UserContext(), subtaskID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
