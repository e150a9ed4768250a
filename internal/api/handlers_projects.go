package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/boardkeeper/internal/services"
)

type projectInput struct {
	Name        *string `json:"name" form:"name"`
	Description *string `json:"description" form:"description"`
}

type completionInput struct {
	Completed bool `json:"completed" form:"completed"`
}

type boardInput struct {
	Name string `json:"name" form:"name"`
}

func (handler *Handler) CreateProject(c *fiber.Ctx) error {
	input := projectInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}
	name, description := "", ""
	if input.Name != nil {
		name = *input.Name
	}
	if input.Description != nil {
		description = *input.Description
	}

	project, err := handler.projectService.CreateProject(c.UserContext(), name, description, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

func (handler *Handler) ListProjects(c *fiber.Ctx) error {
	projects, err := handler.projectService.ListProjects(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(projects)
}

func (handler *Handler) GetProject(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	project, err := handler.projectService.GetProject(c.UserContext(), projectID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}

func (handler *Handler) UpdateProject(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := projectInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	project, err := handler.projectService.UpdateProject(c.UserContext(), projectID, input.Name, input.Description, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}

func (handler *Handler) SetProjectCompletion(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := completionInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	project, err := handler.projectService.SetCompletion(c.UserContext(), projectID, input.Completed, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}

func (handler *Handler) DeleteProject(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := handler.projectService.DeleteProject(c.UserContext(), projectID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) CreateBoard(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	input := boardInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	board, err := handler.projectService.CreateBoard(c.UserContext(), projectID, input.Name, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(board)
}

func (handler *Handler) ListBoards(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	boards, err := handler.projectService.ListBoards(c.UserContext(), projectID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(boards)
}

func (handler *Handler) ProjectHistory(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	return handler.respondHistory(c, services.HistoryQuery{ProjectID: projectID})
}

func (handler *Handler) CheckEligibility(c *fiber.Ctx) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return respondServiceError(c, err)
	}

	eligibility, err := handler.workloadService.CheckEligibility(c.UserContext(), projectID, userID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(eligibility)
}

func (handler *Handler) respondHistory(c *fiber.Ctx, query services.HistoryQuery) error {
	var err error
	if query.AssigneeID, err = queryID(c, "assignee_id"); err != nil {
		return respondServiceError(c, err)
	}
	if query.From, err = handler.queryTime(c, "from", false); err != nil {
		return respondServiceError(c, err)
	}
	if query.To, err = handler.queryTime(c, "to", true); err != nil {
		return respondServiceError(c, err)
	}
	query.ActiveOnly = c.QueryBool("active_only", false)

	result, err := handler.historyService.GetAssignmentHistory(c.UserContext(), query, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}
