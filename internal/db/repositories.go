package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type Repositories struct {
	Users         *UserRepository
	Projects      *ProjectRepository
	Members       *MemberRepository
	Boards        *BoardRepository
	Cards         *CardRepository
	Assignments   *AssignmentRepository
	Subtasks      *SubtaskRepository
	TimeLogs      *TimeLogRepository
	Notifications *NotificationRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(database),
		Projects:      NewProjectRepository(database),
		Members:       NewMemberRepository(database),
		Boards:        NewBoardRepository(database),
		Cards:         NewCardRepository(database),
		Assignments:   NewAssignmentRepository(database),
		Subtasks:      NewSubtaskRepository(database),
		TimeLogs:      NewTimeLogRepository(database),
		Notifications: NewNotificationRepository(database),
	}
}

// Store is the single synchronization point for multi-row read-modify-write
// sequences: every invariant check and the writes it guards run inside one
// Transaction call.
type Store struct {
	database *gorm.DB
}

func NewStore(database *gorm.DB) *Store {
	return &Store{database: database}
}

func (store *Store) DB() *gorm.DB {
	return store.database
}

func (store *Store) Repos(ctx context.Context) *Repositories {
	return NewRepositories(store.database.WithContext(ctx))
}

func (store *Store) Transaction(ctx context.Context, fn func(repos *Repositories) error) error {
	return store.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
