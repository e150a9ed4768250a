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

const maxAssignmentReasonLength = 500

type AssignInput struct {
	CardID     uint
	AssigneeID uint
	ActorID    uint
	Reason     string
	// AdminOverride lets an ADMIN place a card on an OBSERVER member.
	AdminOverride bool
}

// AssignmentService is the ledger. It is the only writer of Card.AssigneeID.
type AssignmentService struct {
	store     *db.Store
	publisher Publisher
	now       func() time.Time
}

func NewAssignmentService(store *db.Store, publisher Publisher) *AssignmentService {
	return &AssignmentService{
		store:     store,
		publisher: publisherOrDiscard(publisher),
		now:       utcNow,
	}
}

func (service *AssignmentService) Assign(ctx context.Context, input AssignInput) (models.CardAssignment, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if len(input.Reason) > maxAssignmentReasonLength {
		return models.CardAssignment{}, fmt.Errorf("%w: reason is too long", ErrValidation)
	}
	if input.AssigneeID == 0 {
		return models.CardAssignment{}, fmt.Errorf("%w: assignee is required", ErrValidation)
	}

	var assignment models.CardAssignment
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		scope, err := loadCardScope(repos, input.CardID)
		if err != nil {
			return err
		}
		actor, access, err := authorizeProject(repos, input.ActorID, scope.Project, nil)
		if err != nil {
			return err
		}
		if !CanAssign(access, input.AssigneeID) {
			return ErrForbidden
		}
		if input.AdminOverride && !IsAdmin(actor.GlobalRole) {
			return fmt.Errorf("%w: override requires ADMIN", ErrForbidden)
		}

		assignment, err = assignInTx(repos, scope, input, service.now(), effects)
		return err
	})
	if err != nil {
		return models.CardAssignment{}, err
	}

	effects.flush(service.publisher)
	return assignment, nil
}

// assignInTx validates the assignee and swaps the live ledger row. It must
// run inside a Store transaction; authorization is the caller's job.
func assignInTx(repos *db.Repositories, scope db.CardScope, input AssignInput, at time.Time, effects *sideEffects) (models.CardAssignment, error) {
	card := scope.Card
	project := scope.Project

	if _, err := repos.Users.FindByID(input.AssigneeID); err != nil {
		return models.CardAssignment{}, translateStoreError(err, ErrUserNotFound)
	}
	member, found, err := repos.Members.Find(project.ID, input.AssigneeID)
	if err != nil {
		return models.CardAssignment{}, err
	}
	if !found {
		return models.CardAssignment{}, fmt.Errorf("%w: assignee is not a member of project %d", ErrMemberNotFound, project.ID)
	}
	if !CanBeAssigned(member) && !input.AdminOverride {
		return models.CardAssignment{}, fmt.Errorf("%w: observers cannot be assigned", ErrForbidden)
	}

	current, hasCurrent, err := repos.Assignments.FindActiveByCard(card.ID)
	if err != nil {
		return models.CardAssignment{}, err
	}
	if hasCurrent && current.AssignedTo == input.AssigneeID {
		return current, nil
	}

	if err := checkOneActiveTask(repos, project, input.AssigneeID, card.ID); err != nil {
		return models.CardAssignment{}, err
	}

	if _, err := repos.Assignments.DeactivateActiveByCard(card.ID, at); err != nil {
		return models.CardAssignment{}, err
	}

	memberID := member.ID
	assignment := models.CardAssignment{
		CardID:          card.ID,
		AssignedTo:      input.AssigneeID,
		AssignedBy:      input.ActorID,
		AssignedAt:      at,
		IsActive:        true,
		Reason:          input.Reason,
		ProjectMemberID: &memberID,
	}
	if err := repos.Assignments.Create(&assignment); err != nil {
		return models.CardAssignment{}, translateStoreError(err, ErrCardNotFound)
	}

	assigneeID := input.AssigneeID
	if err := repos.Cards.SetAssignee(card.ID, &assigneeID); err != nil {
		return models.CardAssignment{}, err
	}

	payload := map[string]any{
		"card_id":       card.ID,
		"assignee_id":   input.AssigneeID,
		"assignment_id": assignment.ID,
		"status":        card.Status,
	}
	if hasCurrent {
		payload["previous_assignee_id"] = current.AssignedTo
	}
	effects.emit(events.ForCardAndProject(events.CardAssigned, card.ID, project.ID, input.ActorID, payload)...)

	link := fmt.Sprintf("/projects/%d/cards/%d", project.ID, card.ID)
	if input.AssigneeID != input.ActorID {
		effects.notify(events.Notification{
			UserID:  input.AssigneeID,
			Type:    models.NotificationCardAssigned,
			Title:   "Card assigned",
			Message: fmt.Sprintf("You were assigned to %q in %s", card.Title, project.Name),
			Link:    link,
		})
	}
	if hasCurrent && current.AssignedTo != input.ActorID {
		effects.notify(events.Notification{
			UserID:  current.AssignedTo,
			Type:    models.NotificationCardUnassigned,
			Title:   "Card reassigned",
			Message: fmt.Sprintf("%q in %s was reassigned", card.Title, project.Name),
			Link:    link,
		})
	}

	return assignment, nil
}

// Unassign closes the live row. Calling it on an unassigned card is a no-op.
func (service *AssignmentService) Unassign(ctx context.Context, cardID uint, actorID uint) error {
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		scope, err := loadCardScope(repos, cardID)
		if err != nil {
			return err
		}
		_, access, err := authorizeProject(repos, actorID, scope.Project, nil)
		if err != nil {
			return err
		}
		if !CanUnassign(access, scope.Card.AssigneeID) {
			return ErrForbidden
		}

		_, err = unassignInTx(repos, scope, actorID, service.now(), "unassigned", effects)
		return err
	})
	if err != nil {
		return err
	}

	effects.flush(service.publisher)
	return nil
}

// unassignInTx closes the live row and clears the pointer. It reports
// whether anything changed.
func unassignInTx(repos *db.Repositories, scope db.CardScope, actorID uint, at time.Time, reason string, effects *sideEffects) (bool, error) {
	card := scope.Card
	closed, err := repos.Assignments.DeactivateActiveByCard(card.ID, at)
	if err != nil {
		return false, err
	}
	if closed == 0 && card.AssigneeID == nil {
		return false, nil
	}
	if err := repos.Cards.SetAssignee(card.ID, nil); err != nil {
		return false, err
	}

	payload := map[string]any{"card_id": card.ID, "reason": reason}
	if card.AssigneeID != nil {
		payload["assignee_id"] = *card.AssigneeID
		if *card.AssigneeID != actorID {
			effects.notify(events.Notification{
				UserID:  *card.AssigneeID,
				Type:    models.NotificationCardUnassigned,
				Title:   "Card unassigned",
				Message: fmt.Sprintf("You were removed from %q in %s", card.Title, scope.Project.Name),
				Link:    fmt.Sprintf("/projects/%d/cards/%d", scope.Project.ID, card.ID),
			})
		}
	}
	effects.emit(events.ForCardAndProject(events.CardUnassigned, card.ID, scope.Project.ID, actorID, payload)...)
	return true, nil
}
