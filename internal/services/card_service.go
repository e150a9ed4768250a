package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/events"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

const maxCardTitleLength = 200

type CreateCardInput struct {
	BoardID     uint
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
	AssigneeID  *uint
	ActorID     uint
}

// UpdateCardInput carries optional field edits. Status and assignee are not
// editable here.
type UpdateCardInput struct {
	Title       *string
	Description *string
	Priority    *string
	DueDate     *time.Time
	ClearDue    bool
}

type CardDetail struct {
	Card             models.Card            `json:"card"`
	ProjectID        uint                   `json:"project_id"`
	ActiveAssignment *models.CardAssignment `json:"active_assignment"`
	Subtasks         []models.Subtask       `json:"subtasks"`
}

type CardService struct {
	store     *db.Store
	publisher Publisher
	now       func() time.Time
}

func NewCardService(store *db.Store, publisher Publisher) *CardService {
	return &CardService{
		store:     store,
		publisher: publisherOrDiscard(publisher),
		now:       utcNow,
	}
}

func (service *CardService) CreateCard(ctx context.Context, input CreateCardInput) (models.Card, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxCardTitleLength {
		return models.Card{}, fmt.Errorf("%w: title is required and must be at most %d characters", ErrValidation, maxCardTitleLength)
	}
	priority := strings.ToUpper(strings.TrimSpace(input.Priority))
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.IsValidPriority(priority) {
		return models.Card{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, input.Priority)
	}

	var card models.Card
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		board, err := repos.Boards.FindByID(input.BoardID)
		if err != nil {
			return translateStoreError(err, fmt.Errorf("%w: board", ErrNotFound))
		}
		project, err := loadProject(repos, board.ProjectID)
		if err != nil {
			return err
		}
		_, access, err := authorizeProject(repos, input.ActorID, project, CanContribute)
		if err != nil {
			return err
		}

		position, err := repos.Cards.MaxPosition(board.ID)
		if err != nil {
			return err
		}
		card = models.Card{
			BoardID:     board.ID,
			Title:       title,
			Description: strings.TrimSpace(input.Description),
			Status:      models.CardStatusTodo,
			Priority:    priority,
			DueDate:     input.DueDate,
			Position:    position + 1,
			CreatedBy:   input.ActorID,
		}
		if err := repos.Cards.Create(&card); err != nil {
			return err
		}
		effects.emit(events.ForCardAndProject(events.CardCreated, card.ID, project.ID, input.ActorID, map[string]any{
			"card_id":  card.ID,
			"board_id": board.ID,
			"title":    card.Title,
		})...)

		if input.AssigneeID == nil {
			return nil
		}
		if !CanAssign(access, *input.AssigneeID) {
			return ErrForbidden
		}
		scope := db.CardScope{Card: card, Project: project}
		if _, err := assignInTx(repos, scope, AssignInput{
			CardID:     card.ID,
			AssigneeID: *input.AssigneeID,
			ActorID:    input.ActorID,
			Reason:     "assigned on creation",
		}, service.now(), effects); err != nil {
			return err
		}
		assignee := *input.AssigneeID
		card.AssigneeID = &assignee
		return nil
	})
	if err != nil {
		return models.Card{}, err
	}

	effects.flush(service.publisher)
	return card, nil
}

func (service *CardService) GetCard(ctx context.Context, cardID uint, actorID uint) (CardDetail, error) {
	repos := service.store.Repos(ctx)
	scope, err := loadCardScope(repos, cardID)
	if err != nil {
		return CardDetail{}, err
	}
	if _, _, err := authorizeProject(repos, actorID, scope.Project, CanReadProject); err != nil {
		return CardDetail{}, err
	}

	detail := CardDetail{Card: scope.Card, ProjectID: scope.Project.ID}
	active, found, err := repos.Assignments.FindActiveByCard(cardID)
	if err != nil {
		return CardDetail{}, err
	}
	if found {
		detail.ActiveAssignment = &active
	}
	detail.Subtasks, err = repos.Subtasks.ListByCard(cardID)
	if err != nil {
		return CardDetail{}, err
	}
	return detail, nil
}

func (service *CardService) ListBoardCards(ctx context.Context, boardID uint, actorID uint) ([]models.Card, error) {
	repos := service.store.Repos(ctx)
	board, err := repos.Boards.FindByID(boardID)
	if err != nil {
		return nil, translateStoreError(err, fmt.Errorf("%w: board", ErrNotFound))
	}
	project, err := loadProject(repos, board.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, _, err := authorizeProject(repos, actorID, project, CanReadProject); err != nil {
		return nil, err
	}
	return repos.Cards.ListByBoard(boardID)
}

func (service *CardService) UpdateCard(ctx context.Context, cardID uint, input UpdateCardInput, actorID uint) (models.Card, error) {
	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > maxCardTitleLength {
			return models.Card{}, fmt.Errorf("%w: title is required and must be at most %d characters", ErrValidation, maxCardTitleLength)
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		priority := strings.ToUpper(strings.TrimSpace(*input.Priority))
		if !models.IsValidPriority(priority) {
			return models.Card{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, *input.Priority)
		}
		updates["priority"] = priority
	}
	if input.ClearDue {
		updates["due_date"] = nil
	} else if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}

	return service.mutateCard(ctx, cardID, actorID, CanContribute, func(repos *db.Repositories, scope db.CardScope, effects *sideEffects) error {
		if len(updates) == 0 {
			return nil
		}
		if err := repos.Cards.UpdateByID(cardID, updates); err != nil {
			return err
		}
		effects.emit(events.ForCardAndProject(events.CardUpdated, cardID, scope.Project.ID, actorID, map[string]any{
			"card_id": cardID,
			"fields":  updateKeys(updates),
		})...)
		return nil
	})
}

// UpdateStatus writes any status in the enum. Moving a card out of DONE puts
// it back on the assignee's plate, so the workload rule is re-checked.
func (service *CardService) UpdateStatus(ctx context.Context, cardID uint, status string, actorID uint) (models.Card, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !models.IsValidCardStatus(status) {
		return models.Card{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	return service.mutateCard(ctx, cardID, actorID, CanContribute, func(repos *db.Repositories, scope db.CardScope, effects *sideEffects) error {
		card := scope.Card
		if card.Status == status {
			return nil
		}
		if card.Status == models.CardStatusDone && card.AssigneeID != nil {
			if err := checkOneActiveTask(repos, scope.Project, *card.AssigneeID, card.ID); err != nil {
				return err
			}
		}
		if err := repos.Cards.UpdateByID(card.ID, map[string]any{"status": status}); err != nil {
			return err
		}
		effects.emit(events.ForCardAndProject(events.CardUpdated, card.ID, scope.Project.ID, actorID, map[string]any{
			"card_id":         card.ID,
			"status":          status,
			"previous_status": card.Status,
		})...)
		return nil
	})
}

// ResetCard moves a DONE card back to TODO and releases its assignee, which
// frees the member for new work under the one-active-task rule.
func (service *CardService) ResetCard(ctx context.Context, cardID uint, actorID uint) (models.Card, error) {
	return service.mutateCard(ctx, cardID, actorID, CanContribute, func(repos *db.Repositories, scope db.CardScope, effects *sideEffects) error {
		if scope.Card.Status != models.CardStatusDone {
			return ErrCardNotDone
		}
		if _, err := unassignInTx(repos, scope, actorID, service.now(), "card reset", effects); err != nil {
			return err
		}
		if err := repos.Cards.UpdateByID(cardID, map[string]any{"status": models.CardStatusTodo}); err != nil {
			return err
		}
		effects.emit(events.ForCardAndProject(events.CardReset, cardID, scope.Project.ID, actorID, map[string]any{
			"card_id": cardID,
			"status":  models.CardStatusTodo,
		})...)
		return nil
	})
}

// DeleteCard soft-deletes the card. Ledger rows stay as the audit trail.
func (service *CardService) DeleteCard(ctx context.Context, cardID uint, actorID uint) error {
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		scope, err := loadCardScope(repos, cardID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, scope.Project, CanAdministerProject); err != nil {
			return err
		}
		if _, err := unassignInTx(repos, scope, actorID, service.now(), "card deleted", effects); err != nil {
			return err
		}
		if err := repos.Cards.Delete(cardID); err != nil {
			return err
		}
		effects.emit(events.ForCardAndProject(events.CardDeleted, cardID, scope.Project.ID, actorID, map[string]any{"card_id": cardID})...)
		return nil
	})
	if err != nil {
		return err
	}

	effects.flush(service.publisher)
	return nil
}

func (service *CardService) mutateCard(
	ctx context.Context,
	cardID uint,
	actorID uint,
	allowed func(ProjectAccess) bool,
	mutate func(repos *db.Repositories, scope db.CardScope, effects *sideEffects) error,
) (models.Card, error) {
	var card models.Card
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		scope, err := loadCardScope(repos, cardID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, scope.Project, allowed); err != nil {
			return err
		}
		if err := mutate(repos, scope, effects); err != nil {
			return err
		}
		card, err = repos.Cards.FindByID(cardID)
		return translateStoreError(err, ErrCardNotFound)
	})
	if err != nil {
		return models.Card{}, err
	}

	effects.flush(service.publisher)
	return card, nil
}

func updateKeys(updates map[string]any) []string {
	keys := make([]string, 0, len(updates))
	for key := range updates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
