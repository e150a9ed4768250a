package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/events"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

const (
	SubtaskStatusTodo = "TODO"
	SubtaskStatusDone = "DONE"
)

type SubtaskService struct {
	store     *db.Store
	publisher Publisher
}

func NewSubtaskService(store *db.Store, publisher Publisher) *SubtaskService {
	return &SubtaskService{store: store, publisher: publisherOrDiscard(publisher)}
}

// CreateSubtask appends after the current last position. Observers cannot
// create subtasks.
func (service *SubtaskService) CreateSubtask(ctx context.Context, cardID uint, title string, assigneeID *uint, actorID uint) (models.Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxCardTitleLength {
		return models.Subtask{}, fmt.Errorf("%w: title is required and must be at most %d characters", ErrValidation, maxCardTitleLength)
	}

	var subtask models.Subtask
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		scope, err := loadCardScope(repos, cardID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, scope.Project, CanContribute); err != nil {
			return err
		}
		if err := checkSubtaskAssignee(repos, scope.Project.ID, assigneeID); err != nil {
			return err
		}

		position, err := repos.Subtasks.MaxPosition(cardID)
		if err != nil {
			return err
		}
		subtask = models.Subtask{
			CardID:     cardID,
			Title:      title,
			Status:     SubtaskStatusTodo,
			AssigneeID: assigneeID,
			Position:   position + 1,
			CreatedBy:  actorID,
		}
		return repos.Subtasks.Create(&subtask)
	})
	if err != nil {
		return models.Subtask{}, err
	}

	service.publishChange(cardID, subtask, actorID)
	return subtask, nil
}

func (service *SubtaskService) ListSubtasks(ctx context.Context, cardID uint, actorID uint) ([]models.Subtask, error) {
	repos := service.store.Repos(ctx)
	scope, err := loadCardScope(repos, cardID)
	if err != nil {
		return nil, err
	}
	if _, _, err := authorizeProject(repos, actorID, scope.Project, CanReadProject); err != nil {
		return nil, err
	}
	return repos.Subtasks.ListByCard(cardID)
}

// ToggleSubtask flips TODO and DONE.
func (service *SubtaskService) ToggleSubtask(ctx context.Context, subtaskID uint, actorID uint) (models.Subtask, error) {
	return service.mutate(ctx, subtaskID, actorID, CanContribute, func(repos *db.Repositories, _ db.CardScope, subtask *models.Subtask) error {
		next := SubtaskStatusDone
		if subtask.Status == SubtaskStatusDone {
			next = SubtaskStatusTodo
		}
		subtask.Status = next
		return repos.Subtasks.UpdateByID(subtask.ID, map[string]any{"status": next})
	})
}

func (service *SubtaskService) SetSubtaskAssignee(ctx context.Context, subtaskID uint, assigneeID *uint, actorID uint) (models.Subtask, error) {
	return service.mutate(ctx, subtaskID, actorID, CanContribute, func(repos *db.Repositories, scope db.CardScope, subtask *models.Subtask) error {
		if err := checkSubtaskAssignee(repos, scope.Project.ID, assigneeID); err != nil {
			return err
		}
		subtask.AssigneeID = assigneeID
		return repos.Subtasks.UpdateByID(subtask.ID, map[string]any{"assignee_id": assigneeID})
	})
}

// DeleteSubtask is reserved for the project's administrators.
func (service *SubtaskService) DeleteSubtask(ctx context.Context, subtaskID uint, actorID uint) error {
	_, err := service.mutate(ctx, subtaskID, actorID, CanAdministerProject, func(repos *db.Repositories, _ db.CardScope, subtask *models.Subtask) error {
		return repos.Subtasks.Delete(subtask.ID)
	})
	return err
}

func (service *SubtaskService) mutate(
	ctx context.Context,
	subtaskID uint,
	actorID uint,
	allowed func(ProjectAccess) bool,
	apply func(repos *db.Repositories, scope db.CardScope, subtask *models.Subtask) error,
) (models.Subtask, error) {
	var subtask models.Subtask
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		var err error
		subtask, err = repos.Subtasks.FindByID(subtaskID)
		if err != nil {
			return translateStoreError(err, fmt.Errorf("%w: subtask", ErrNotFound))
		}
		scope, err := loadCardScope(repos, subtask.CardID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, scope.Project, allowed); err != nil {
			return err
		}
		return apply(repos, scope, &subtask)
	})
	if err != nil {
		return models.Subtask{}, err
	}

	service.publishChange(subtask.CardID, subtask, actorID)
	return subtask, nil
}

func (service *SubtaskService) publishChange(cardID uint, subtask models.Subtask, actorID uint) {
	service.publisher.Publish(events.Event{
		Channel: events.CardChannel(cardID),
		Name:    events.SubtaskUpdated,
		ActorID: actorID,
		Payload: map[string]any{"card_id": cardID, "subtask_id": subtask.ID, "status": subtask.Status},
	})
}

func checkSubtaskAssignee(repos *db.Repositories, projectID uint, assigneeID *uint) error {
	if assigneeID == nil {
		return nil
	}
	member, found, err := repos.Members.Find(projectID, *assigneeID)
	if err != nil {
		return err
	}
	if !found {
		return ErrMemberNotFound
	}
	if !CanBeAssigned(member) {
		return fmt.Errorf("%w: observers cannot be assigned", ErrForbidden)
	}
	return nil
}
