package api

import "github.com/terraincognita07/boardkeeper/internal/services"

func (handler *Handler) withDependencies() *Handler {
	store := handler.store
	publisher := handler.publisher

	handler.authService = services.NewAuthService(store)
	handler.userService = services.NewUserService(store)
	handler.projectService = services.NewProjectService(store, publisher)
	handler.membershipService = services.NewMembershipService(store, publisher)
	handler.cardService = services.NewCardService(store, publisher)
	handler.assignmentService = services.NewAssignmentService(store, publisher)
	handler.historyService = services.NewHistoryService(store)
	handler.workloadService = services.NewWorkloadService(store)
	handler.subtaskService = services.NewSubtaskService(store, publisher)
	handler.timerService = services.NewTimerService(store, publisher, handler.maxTimerHrs)
	handler.notificationService = services.NewNotificationService(store)
	handler.consistencyService = services.NewConsistencyService(store)
	return handler
}
