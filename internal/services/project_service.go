package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/events"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

const maxProjectNameLength = 120

type ProjectService struct {
	store     *db.Store
	publisher Publisher
	now       func() time.Time
}

func NewProjectService(store *db.Store, publisher Publisher) *ProjectService {
	return &ProjectService{
		store:     store,
		publisher: publisherOrDiscard(publisher),
		now:       utcNow,
	}
}

// CreateProject is open to ADMIN and global LEADER users. The creator joins
// the project, as LEADER when they are eligible and not leading elsewhere.
func (service *ProjectService) CreateProject(ctx context.Context, name string, description string, actorID uint) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxProjectNameLength {
		return models.Project{}, fmt.Errorf("%w: name is required and must be at most %d characters", ErrValidation, maxProjectNameLength)
	}

	var project models.Project
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		actor, err := loadActor(repos, actorID)
		if err != nil {
			return err
		}
		if !IsLeaderOrAdmin(actor.GlobalRole) {
			return ErrForbidden
		}

		project = models.Project{
			Name:        name,
			Description: strings.TrimSpace(description),
			CreatedBy:   actor.ID,
		}
		if err := repos.Projects.Create(&project); err != nil {
			return err
		}

		role := models.ProjectRoleDeveloper
		if CanHoldProjectLeadership(actor) {
			_, leadsElsewhere, err := repos.Members.FindLeadershipByUser(actor.ID)
			if err != nil {
				return err
			}
			if !leadsElsewhere {
				role = models.ProjectRoleLeader
			}
		}
		return repos.Members.Create(&models.ProjectMember{
			ProjectID:   project.ID,
			UserID:      actor.ID,
			ProjectRole: role,
			JoinedAt:    service.now(),
		})
	})
	if err != nil {
		return models.Project{}, translateStoreError(err, ErrProjectNotFound)
	}
	return project, nil
}

func (service *ProjectService) GetProject(ctx context.Context, projectID uint, actorID uint) (models.Project, error) {
	repos := service.store.Repos(ctx)
	project, err := loadProject(repos, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if _, _, err := authorizeProject(repos, actorID, project, CanReadProject); err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func (service *ProjectService) ListProjects(ctx context.Context, actorID uint) ([]models.Project, error) {
	repos := service.store.Repos(ctx)
	actor, err := loadActor(repos, actorID)
	if err != nil {
		return nil, err
	}
	if IsAdmin(actor.GlobalRole) {
		return repos.Projects.ListAll()
	}
	return repos.Projects.ListVisibleTo(actor.ID)
}

func (service *ProjectService) UpdateProject(ctx context.Context, projectID uint, name *string, description *string, actorID uint) (models.Project, error) {
	updates := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || len(trimmed) > maxProjectNameLength {
			return models.Project{}, fmt.Errorf("%w: name is required and must be at most %d characters", ErrValidation, maxProjectNameLength)
		}
		updates["name"] = trimmed
	}
	if description != nil {
		updates["description"] = strings.TrimSpace(*description)
	}

	return service.mutateProject(ctx, projectID, actorID, CanAdministerProject, func(repos *db.Repositories, project models.Project) error {
		if len(updates) == 0 {
			return nil
		}
		return repos.Projects.UpdateByID(project.ID, updates)
	})
}

// SetCompletion toggles the project's completed flag. Reopening fails while
// any member holds more than one unfinished card in it, since the workload
// rule would otherwise be violated the moment it comes back into force.
func (service *ProjectService) SetCompletion(ctx context.Context, projectID uint, completed bool, actorID uint) (models.Project, error) {
	return service.mutateProject(ctx, projectID, actorID, CanToggleCompletion, func(repos *db.Repositories, project models.Project) error {
		if project.IsCompleted == completed {
			return nil
		}
		if !completed {
			violations, err := repos.Cards.ListWorkloadViolationsInProject(project.ID)
			if err != nil {
				return err
			}
			if len(violations) > 0 {
				cards, err := repos.Cards.ListUnfinishedForAssignee(project.ID, violations[0].AssigneeID, 0)
				if err != nil {
					return err
				}
				return &UnfinishedCardsError{UserID: violations[0].AssigneeID, ProjectID: project.ID, Cards: blockingCards(cards)}
			}
		}
		return repos.Projects.SetCompleted(project.ID, completed, service.now())
	})
}

// DeleteProject soft-deletes the project after closing its live assignments
// and dropping its memberships. The assignment ledger is kept.
func (service *ProjectService) DeleteProject(ctx context.Context, projectID uint, actorID uint) error {
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		project, err := loadProject(repos, projectID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, project, CanAdministerProject); err != nil {
			return err
		}

		now := service.now()
		live, err := repos.Assignments.ListActiveInProject(project.ID)
		if err != nil {
			return err
		}
		for _, row := range live {
			if err := repos.Assignments.DeactivateByID(row.ID, now); err != nil {
				return err
			}
			if err := repos.Cards.SetAssignee(row.CardID, nil); err != nil {
				return err
			}
			effects.emit(events.ForCardAndProject(events.CardUnassigned, row.CardID, project.ID, actorID, map[string]any{
				"card_id":     row.CardID,
				"assignee_id": row.AssignedTo,
				"reason":      "project deleted",
			})...)
		}

		if err := repos.Members.DeleteByProject(project.ID); err != nil {
			return err
		}
		if err := repos.Projects.Delete(project.ID); err != nil {
			return err
		}
		effects.emit(events.Event{
			Channel: events.ProjectChannel(project.ID),
			Name:    events.ProjectDeleted,
			ActorID: actorID,
			Payload: map[string]any{"project_id": project.ID},
		})
		return nil
	})
	if err != nil {
		return err
	}

	effects.flush(service.publisher)
	return nil
}

func (service *ProjectService) CreateBoard(ctx context.Context, projectID uint, name string, actorID uint) (models.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxProjectNameLength {
		return models.Board{}, fmt.Errorf("%w: board name is required", ErrValidation)
	}

	var board models.Board
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		project, err := loadProject(repos, projectID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, project, CanAdministerProject); err != nil {
			return err
		}
		position, err := repos.Boards.MaxPosition(project.ID)
		if err != nil {
			return err
		}
		board = models.Board{ProjectID: project.ID, Name: name, Position: position + 1}
		return repos.Boards.Create(&board)
	})
	if err != nil {
		return models.Board{}, err
	}
	return board, nil
}

func (service *ProjectService) ListBoards(ctx context.Context, projectID uint, actorID uint) ([]models.Board, error) {
	repos := service.store.Repos(ctx)
	project, err := loadProject(repos, projectID)
	if err != nil {
		return nil, err
	}
	if _, _, err := authorizeProject(repos, actorID, project, CanReadProject); err != nil {
		return nil, err
	}
	return repos.Boards.ListByProject(projectID)
}

func (service *ProjectService) mutateProject(
	ctx context.Context,
	projectID uint,
	actorID uint,
	allowed func(ProjectAccess) bool,
	mutate func(repos *db.Repositories, project models.Project) error,
) (models.Project, error) {
	var updated models.Project
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		project, err := loadProject(repos, projectID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, project, allowed); err != nil {
			return err
		}
		if err := mutate(repos, project); err != nil {
			return err
		}
		updated, err = loadProject(repos, projectID)
		return err
	})
	if err != nil {
		return models.Project{}, err
	}

	service.publisher.Publish(events.Event{
		Channel: events.ProjectChannel(projectID),
		Name:    events.ProjectUpdated,
		ActorID: actorID,
		Payload: map[string]any{"project_id": projectID, "is_completed": updated.IsCompleted, "name": updated.Name},
	})
	return updated, nil
}
