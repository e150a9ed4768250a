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

const DefaultMaxTimerHours = 12

type TimerService struct {
	store     *db.Store
	publisher Publisher
	maxHours  int
	now       func() time.Time
}

func NewTimerService(store *db.Store, publisher Publisher, maxHours int) *TimerService {
	if maxHours <= 0 {
		maxHours = DefaultMaxTimerHours
	}
	return &TimerService{
		store:     store,
		publisher: publisherOrDiscard(publisher),
		maxHours:  maxHours,
		now:       utcNow,
	}
}

// StartTimer opens a time log. A user has at most one running timer across
// all cards. A TODO card moves to IN_PROGRESS; later statuses are kept.
func (service *TimerService) StartTimer(ctx context.Context, cardID uint, actorID uint, description string) (models.TimeLog, error) {
	var entry models.TimeLog
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		scope, err := loadCardScope(repos, cardID)
		if err != nil {
			return err
		}
		if _, _, err := authorizeProject(repos, actorID, scope.Project, CanContribute); err != nil {
			return err
		}

		running, found, err := repos.TimeLogs.FindRunningByUser(actorID)
		if err != nil {
			return err
		}
		if found {
			return &ActiveTimerError{TimeLogID: running.ID, CardID: running.CardID}
		}

		now := service.now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		logged, err := repos.TimeLogs.SumClosedMinutesSince(actorID, dayStart)
		if err != nil {
			return err
		}
		if logged >= service.maxHours*60 {
			return &TimerLimitError{MaxHours: service.maxHours}
		}

		entry = models.TimeLog{
			CardID:      cardID,
			UserID:      actorID,
			StartTime:   now,
			Description: strings.TrimSpace(description),
			CreatedAt:   now,
		}
		if err := repos.TimeLogs.Create(&entry); err != nil {
			if db.IsUniqueViolation(err) {
				return &ActiveTimerError{}
			}
			return err
		}

		if scope.Card.Status == models.CardStatusTodo {
			if err := repos.Cards.UpdateByID(cardID, map[string]any{"status": models.CardStatusInProgress}); err != nil {
				return err
			}
			effects.emit(events.ForCardAndProject(events.CardUpdated, cardID, scope.Project.ID, actorID, map[string]any{
				"card_id":         cardID,
				"status":          models.CardStatusInProgress,
				"previous_status": models.CardStatusTodo,
			})...)
		}
		effects.emit(events.ForCardAndProject(events.TimerStarted, cardID, scope.Project.ID, actorID, map[string]any{
			"card_id":     cardID,
			"time_log_id": entry.ID,
			"user_id":     actorID,
		})...)
		return nil
	})
	if err != nil {
		return models.TimeLog{}, err
	}

	effects.flush(service.publisher)
	return entry, nil
}

// StopTimer closes a running log. Only its owner or an ADMIN may stop it.
// The recorded duration is capped at the daily limit.
func (service *TimerService) StopTimer(ctx context.Context, timeLogID uint, actorID uint) (models.TimeLog, error) {
	var entry models.TimeLog
	effects := &sideEffects{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		actor, err := loadActor(repos, actorID)
		if err != nil {
			return err
		}
		entry, err = repos.TimeLogs.FindByID(timeLogID)
		if err != nil {
			return translateStoreError(err, fmt.Errorf("%w: time log", ErrNotFound))
		}
		if entry.UserID != actor.ID && !IsAdmin(actor.GlobalRole) {
			return ErrForbidden
		}
		if entry.EndTime != nil {
			return ErrAlreadyStopped
		}

		end := service.now()
		minutes := TimerDurationMinutes(entry.StartTime, end, service.maxHours)
		closed, err := repos.TimeLogs.Close(entry.ID, end, minutes)
		if err != nil {
			return err
		}
		if !closed {
			return ErrAlreadyStopped
		}
		entry.EndTime = &end
		entry.DurationMinutes = minutes

		projectID := uint(0)
		if scope, err := repos.Cards.FindScope(entry.CardID); err == nil {
			projectID = scope.Project.ID
		}
		payload := map[string]any{"card_id": entry.CardID, "time_log_id": entry.ID, "duration_minutes": minutes}
		if projectID != 0 {
			effects.emit(events.ForCardAndProject(events.TimerStopped, entry.CardID, projectID, actorID, payload)...)
		} else {
			effects.emit(events.Event{Channel: events.CardChannel(entry.CardID), Name: events.TimerStopped, ActorID: actorID, Payload: payload})
		}
		return nil
	})
	if err != nil {
		return models.TimeLog{}, err
	}

	effects.flush(service.publisher)
	return entry, nil
}

func (service *TimerService) ActiveTimer(ctx context.Context, userID uint) (*models.TimeLog, error) {
	entry, found, err := service.store.Repos(ctx).TimeLogs.FindRunningByUser(userID)
	if err != nil || !found {
		return nil, err
	}
	return &entry, nil
}

func (service *TimerService) ListCardTimeLogs(ctx context.Context, cardID uint, actorID uint) ([]models.TimeLog, error) {
	repos := service.store.Repos(ctx)
	scope, err := loadCardScope(repos, cardID)
	if err != nil {
		return nil, err
	}
	if _, _, err := authorizeProject(repos, actorID, scope.Project, CanReadProject); err != nil {
		return nil, err
	}
	return repos.TimeLogs.ListByCard(cardID)
}

func TimerDurationMinutes(start time.Time, end time.Time, maxHours int) int {
	minutes := int(end.Sub(start).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	if maxHours > 0 && minutes > maxHours*60 {
		minutes = maxHours * 60
	}
	return minutes
}
