package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/logout", handler.AuthRequired, handler.Logout)
	auth.Get("/me", handler.AuthRequired, handler.Me)
	auth.Post("/password", handler.AuthRequired, handler.ChangePassword)

	users := api.Group("/users", handler.AuthRequired)
	users.Get("", handler.ListUsers)
	users.Put("/:id/role", handler.ChangeUserRole)
	users.Get("/:id/leader-status", handler.GetLeaderStatus)

	projects := api.Group("/projects", handler.AuthRequired)
	projects.Get("", handler.ListProjects)
	projects.Post("", handler.CreateProject)
	projects.Get("/:id", handler.GetProject)
	projects.Patch("/:id", handler.UpdateProject)
	projects.Put("/:id/completion", handler.SetProjectCompletion)
	projects.Delete("/:id", handler.DeleteProject)
	projects.Get("/:id/members", handler.ListMembers)
	projects.Post("/:id/members", handler.AddMember)
	projects.Put("/:id/members/:userId", handler.ChangeMemberRole)
	projects.Delete("/:id/members/:userId", handler.RemoveMember)
	projects.Get("/:id/eligibility/:userId", handler.CheckEligibility)
	projects.Get("/:id/boards", handler.ListBoards)
	projects.Post("/:id/boards", handler.CreateBoard)
	projects.Get("/:id/history", handler.ProjectHistory)

	boards := api.Group("/boards", handler.AuthRequired)
	boards.Get("/:id/cards", handler.ListBoardCards)
	boards.Post("/:id/cards", handler.CreateCard)

	cards := api.Group("/cards", handler.AuthRequired)
	cards.Get("/:id", handler.GetCard)
	cards.Patch("/:id", handler.UpdateCard)
	cards.Put("/:id/status", handler.UpdateCardStatus)
	cards.Delete("/:id", handler.DeleteCard)
	cards.Post("/:id/assign", handler.AssignCard)
	cards.Post("/:id/unassign", handler.UnassignCard)
	cards.Post("/:id/reset", handler.ResetCard)
	cards.Get("/:id/history", handler.CardHistory)
	cards.Get("/:id/subtasks", handler.ListSubtasks)
	cards.Post("/:id/subtasks", handler.CreateSubtask)
	cards.Get("/:id/time-logs", handler.ListCardTimeLogs)
	cards.Post("/:id/timer/start", handler.StartTimer)

	subtasks := api.Group("/subtasks", handler.AuthRequired)
	subtasks.Post("/:id/toggle", handler.ToggleSubtask)
	subtasks.Put("/:id/assignee", handler.SetSubtaskAssignee)
	subtasks.Delete("/:id", handler.DeleteSubtask)

	timers := api.Group("/timers", handler.AuthRequired)
	timers.Get("/active", handler.ActiveTimer)
	timers.Post("/:id/stop", handler.StopTimer)

	notifications := api.Group("/notifications", handler.AuthRequired)
	notifications.Get("", handler.ListNotifications)
	notifications.Post("/:id/read", handler.MarkNotificationRead)

	admin := api.Group("/admin", handler.AuthRequired, handler.AdminOnly)
	admin.Get("/consistency", handler.ConsistencyReport)
	admin.Post("/consistency/repair", handler.RepairConsistency)
	admin.Get("/events", handler.EventStats)
}
