package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/boardkeeper/internal/services"
)

type createCardInput struct {
	Title       string     `json:"title" form:"title"`
	Description string     `json:"description" form:"description"`
	Priority    string     `json:"priority" form:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssigneeID  *uint      `json:"assignee_id"`
}

type updateCardInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
}

type statusInput struct {
	Status string `json:"status" form:"status"`
}

type assignInput struct {
	AssigneeID    uint   `json:"assignee_id" form:"assignee_id"`
	Reason        string `json:"reason" form:"reason"`
	AdminOverride bool   `json:"admin_override" form:"admin_override"`
}

func (handler *Handler) ListBoardCards(c *fiber.Ctx) error {
	boardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	cards, err := handler.cardService.ListBoardCards(c.UserContext(), boardID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(cards)
}

func (handler *Handler) CreateCard(c *fiber.Ctx) error {
	boardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := createCardInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	card, err := handler.cardService.CreateCard(c.UserContext(), services.CreateCardInput{
		BoardID:     boardID,
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		AssigneeID:  input.AssigneeID,
		ActorID:     currentUserID(c),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

func (handler *Handler) GetCard(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	detail, err := handler.cardService.GetCard(c.UserContext(), cardID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(detail)
}

func (handler *Handler) UpdateCard(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := updateCardInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	card, err := handler.cardService.UpdateCard(c.UserContext(), cardID, services.UpdateCardInput{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		ClearDue:    input.ClearDue,
	}, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(card)
}

func (handler *Handler) UpdateCardStatus(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := statusInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	card, err := handler.cardService.UpdateStatus(c.UserContext(), cardID, input.Status, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(card)
}

func (handler *Handler) DeleteCard(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := handler.cardService.DeleteCard(c.UserContext(), cardID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) AssignCard(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := assignInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	assignment, err := handler.assignmentService.Assign(c.UserContext(), services.AssignInput{
		CardID:        cardID,
		AssigneeID:    input.AssigneeID,
		ActorID:       currentUserID(c),
		Reason:        input.Reason,
		AdminOverride: input.AdminOverride,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(assignment)
}

func (handler *Handler) UnassignCard(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := handler.assignmentService.Unassign(c.UserContext(), cardID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) ResetCard(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	card, err := handler.cardService.ResetCard(c.UserContext(), cardID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(card)
}

func (handler *Handler) CardHistory(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	return handler.respondHistory(c, services.HistoryQuery{CardID: cardID})
}
