package api

import "github.com/gofiber/fiber/v2"

type startTimerInput struct {
	Description string `json:"description" form:"description"`
}

func (handler *Handler) StartTimer(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := startTimerInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	entry, err := handler.timerService.StartTimer(c.UserContext(), cardID, currentUserID(c), input.Description)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (handler *Handler) StopTimer(c *fiber.Ctx) error {
	timeLogID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	entry, err := handler.timerService.StopTimer(c.UserContext(), timeLogID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(entry)
}

func (handler *Handler) ActiveTimer(c *fiber.Ctx) error {
	entry, err := handler.timerService.ActiveTimer(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"timer": entry})
}

func (handler *Handler) ListCardTimeLogs(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	logs, err := handler.timerService.ListCardTimeLogs(c.UserContext(), cardID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(logs)
}
