package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terraincognita07/boardkeeper/internal/db"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidState   = errors.New("invalid state")
	ErrValidation     = errors.New("validation error")
	ErrInvalidRole    = errors.New("invalid role")
	ErrLimitExceeded  = errors.New("limit exceeded")
	ErrAlreadyStopped = errors.New("timer already stopped")
)

var (
	ErrAlreadyMember           = fmt.Errorf("%w: user is already a project member", ErrConflict)
	ErrProjectHasLeader        = fmt.Errorf("%w: project already has a leader", ErrConflict)
	ErrUserLeadsAnotherProject = fmt.Errorf("%w: user already leads another project", ErrConflict)
	ErrLeadershipHeld          = fmt.Errorf("%w: user still leads a project", ErrConflict)
	ErrConcurrentUpdate        = fmt.Errorf("%w: concurrent update, retry", ErrConflict)
	ErrLeaderRoleRequiresLead  = fmt.Errorf("%w: project leader must have the global LEADER role", ErrInvalidRole)
	ErrCardNotFound            = fmt.Errorf("%w: card", ErrNotFound)
	ErrProjectNotFound         = fmt.Errorf("%w: project", ErrNotFound)
	ErrUserNotFound            = fmt.Errorf("%w: user", ErrNotFound)
	ErrMemberNotFound          = fmt.Errorf("%w: project member", ErrNotFound)
	ErrCardNotDone             = fmt.Errorf("%w: only DONE cards can be reset", ErrInvalidState)
)

// BlockingCard identifies an unfinished card that prevents a new assignment.
type BlockingCard struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// UnfinishedCardsError reports the cards that keep a member busy in a
// non-completed project.
type UnfinishedCardsError struct {
	UserID    uint
	ProjectID uint
	Cards     []BlockingCard
}

func (err *UnfinishedCardsError) Error() string {
	titles := make([]string, 0, len(err.Cards))
	for _, card := range err.Cards {
		titles = append(titles, fmt.Sprintf("#%d %s (%s)", card.ID, card.Title, card.Status))
	}
	return fmt.Sprintf("conflict: user %d has unfinished cards in project %d: %s", err.UserID, err.ProjectID, strings.Join(titles, ", "))
}

func (err *UnfinishedCardsError) Is(target error) bool {
	return target == ErrConflict
}

type ActiveTimerError struct {
	TimeLogID uint
	CardID    uint
}

func (err *ActiveTimerError) Error() string {
	return fmt.Sprintf("conflict: timer %d is already running", err.TimeLogID)
}

func (err *ActiveTimerError) Is(target error) bool {
	return target == ErrConflict
}

type TimerLimitError struct {
	MaxHours int
}

func (err *TimerLimitError) Error() string {
	return fmt.Sprintf("limit exceeded: %d tracked hours per day", err.MaxHours)
}

func (err *TimerLimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// translateStoreError maps datastore failures onto the service taxonomy.
// Unique-index violations mean a concurrent writer won the race.
func translateStoreError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if db.IsNotFound(err) {
		return notFound
	}
	if db.IsUniqueViolation(err) {
		return ErrConcurrentUpdate
	}
	return err
}
