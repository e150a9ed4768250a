package services

import (
	"context"
	"fmt"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/events"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

type MembershipService struct {
	store     *db.Store
	publisher Publisher
	now       func() time.Time
}

func NewMembershipService(store *db.Store, publisher Publisher) *MembershipService {
	return &MembershipService{
		store:     store,
		publisher: publisherOrDiscard(publisher),
		now:       utcNow,
	}
}

// LeaderStatus is advisory; AddMember re-checks inside its transaction.
type LeaderStatus struct {
	UserID  uint            `json:"user_id"`
	IsLead  bool            `json:"is_leader"`
	Project *models.Project `json:"project,omitempty"`
}

func (service *MembershipService) AddMember(ctx context.Context, projectID uint, userID uint, projectRole string, actorID uint) (models.ProjectMember, error) {
	if !models.IsValidProjectRole(projectRole) {
		return models.ProjectMember{}, fmt.Errorf("%w: unknown project role %q", ErrValidation, projectRole)
	}

	var created models.ProjectMember
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		project, err := loadProject(repos, projectID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, project, CanAdministerProject); err != nil {
			return err
		}

		target, err := repos.Users.FindByID(userID)
		if err != nil {
			return translateStoreError(err, ErrUserNotFound)
		}
		_, exists, err := repos.Members.Find(projectID, userID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyMember
		}
		if projectRole == models.ProjectRoleLeader {
			if err := checkLeadershipAvailable(repos, target, project.ID, 0); err != nil {
				return err
			}
		}

		created = models.ProjectMember{
			ProjectID:   projectID,
			UserID:      userID,
			ProjectRole: projectRole,
			JoinedAt:    service.now(),
		}
		if err := repos.Members.Create(&created); err != nil {
			return translateStoreError(err, ErrMemberNotFound)
		}
		created.User = &target

		effects.emit(events.Event{
			Channel: events.ProjectChannel(projectID),
			Name:    events.MemberAdded,
			ActorID: actorID,
			Payload: map[string]any{"project_id": projectID, "user_id": userID, "project_role": projectRole},
		})
		effects.notify(events.Notification{
			UserID:  userID,
			Type:    models.NotificationProjectInvite,
			Title:   "Added to project",
			Message: fmt.Sprintf("You were added to %s as %s", project.Name, projectRole),
			Link:    fmt.Sprintf("/projects/%d", projectID),
		})
		return nil
	})
	if err != nil {
		return models.ProjectMember{}, err
	}

	effects.flush(service.publisher)
	return created, nil
}

// ChangeMemberRole applies the same leadership rules as AddMember.
func (service *MembershipService) ChangeMemberRole(ctx context.Context, projectID uint, userID uint, projectRole string, actorID uint) (models.ProjectMember, error) {
	if !models.IsValidProjectRole(projectRole) {
		return models.ProjectMember{}, fmt.Errorf("%w: unknown project role %q", ErrValidation, projectRole)
	}

	var updated models.ProjectMember
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		project, err := loadProject(repos, projectID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, project, CanAdministerProject); err != nil {
			return err
		}

		member, found, err := repos.Members.Find(projectID, userID)
		if err != nil {
			return err
		}
		if !found {
			return ErrMemberNotFound
		}
		if member.ProjectRole == projectRole {
			updated = member
			return nil
		}

		target, err := repos.Users.FindByID(userID)
		if err != nil {
			return translateStoreError(err, ErrUserNotFound)
		}
		if projectRole == models.ProjectRoleLeader {
			if err := checkLeadershipAvailable(repos, target, project.ID, member.ID); err != nil {
				return err
			}
		}
		if projectRole == models.ProjectRoleObserver {
			if err := releaseMemberAssignments(repos, project.ID, userID, service.now(), actorID, effects); err != nil {
				return err
			}
		}

		if err := repos.Members.UpdateRole(member.ID, projectRole); err != nil {
			return translateStoreError(err, ErrMemberNotFound)
		}
		member.ProjectRole = projectRole
		updated = member

		effects.emit(events.Event{
			Channel: events.ProjectChannel(projectID),
			Name:    events.MemberUpdated,
			ActorID: actorID,
			Payload: map[string]any{"project_id": projectID, "user_id": userID, "project_role": projectRole},
		})
		return nil
	})
	if err != nil {
		return models.ProjectMember{}, err
	}

	effects.flush(service.publisher)
	return updated, nil
}

// RemoveMember deletes the membership and closes every live assignment the
// member holds in the project in the same transaction.
func (service *MembershipService) RemoveMember(ctx context.Context, projectID uint, userID uint, actorID uint) error {
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		project, err := loadProject(repos, projectID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, project, CanAdministerProject); err != nil {
			return err
		}

		member, found, err := repos.Members.Find(projectID, userID)
		if err != nil {
			return err
		}
		if !found {
			return ErrMemberNotFound
		}

		if err := releaseMemberAssignments(repos, project.ID, userID, service.now(), actorID, effects); err != nil {
			return err
		}
		if err := repos.Members.Delete(member.ID); err != nil {
			return err
		}

		effects.emit(events.Event{
			Channel: events.ProjectChannel(projectID),
			Name:    events.MemberRemoved,
			ActorID: actorID,
			Payload: map[string]any{"project_id": projectID, "user_id": userID},
		})
		return nil
	})
	if err != nil {
		return err
	}

	effects.flush(service.publisher)
	return nil
}

func (service *MembershipService) ListMembers(ctx context.Context, projectID uint, actorID uint) ([]models.ProjectMember, error) {
	repos := service.store.Repos(ctx)
	project, err := loadProject(repos, projectID)
	if err != nil {
		return nil, err
	}
	if _, _, err := authorizeProject(repos, actorID, project, CanReadProject); err != nil {
		return nil, err
	}
	return repos.Members.ListByProject(projectID)
}

func (service *MembershipService) GetLeaderStatus(ctx context.Context, userID uint) (LeaderStatus, error) {
	repos := service.store.Repos(ctx)
	if _, err := repos.Users.FindByID(userID); err != nil {
		return LeaderStatus{}, translateStoreError(err, ErrUserNotFound)
	}

	status := LeaderStatus{UserID: userID}
	leadership, found, err := repos.Members.FindLeadershipByUser(userID)
	if err != nil || !found {
		return status, err
	}
	project, err := loadProject(repos, leadership.ProjectID)
	if err != nil {
		return LeaderStatus{}, err
	}
	status.IsLead = true
	status.Project = &project
	return status, nil
}

// checkLeadershipAvailable enforces the three LEADER rules. skipMemberID
// excludes the membership being promoted from the uniqueness lookups.
func checkLeadershipAvailable(repos *db.Repositories, target models.User, projectID uint, skipMemberID uint) error {
	if !CanHoldProjectLeadership(target) {
		return ErrLeaderRoleRequiresLead
	}

	leader, found, err := repos.Members.FindProjectLeader(projectID)
	if err != nil {
		return err
	}
	if found && leader.ID != skipMemberID {
		return ErrProjectHasLeader
	}

	leadership, found, err := repos.Members.FindLeadershipByUser(target.ID)
	if err != nil {
		return err
	}
	if found && leadership.ID != skipMemberID {
		return ErrUserLeadsAnotherProject
	}
	return nil
}

// releaseMemberAssignments closes the member's live ledger rows in the
// project and clears the matching card pointers.
func releaseMemberAssignments(repos *db.Repositories, projectID uint, userID uint, at time.Time, actorID uint, effects *sideEffects) error {
	cardIDs, err := repos.Assignments.DeactivateForMemberInProject(projectID, userID, at)
	if err != nil {
		return err
	}
	for _, cardID := range cardIDs {
		if err := repos.Cards.SetAssignee(cardID, nil); err != nil {
			return err
		}
		effects.emit(events.ForCardAndProject(events.CardUnassigned, cardID, projectID, actorID, map[string]any{
			"card_id":     cardID,
			"assignee_id": userID,
			"reason":      "membership changed",
		})...)
	}
	return nil
}
