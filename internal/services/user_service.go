package services

import (
	"context"
	"fmt"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

type UserService struct {
	store *db.Store
}

func NewUserService(store *db.Store) *UserService {
	return &UserService{store: store}
}

func (service *UserService) ListUsers(ctx context.Context, actorID uint) ([]models.User, error) {
	repos := service.store.Repos(ctx)
	if _, err := loadActor(repos, actorID); err != nil {
		return nil, err
	}
	return repos.Users.List()
}

// ChangeUserRole updates a global role. A user who currently leads a
// project keeps the global LEADER role until that leadership is handed over.
func (service *UserService) ChangeUserRole(ctx context.Context, targetID uint, newRole string, actorID uint) (models.User, error) {
	if !models.IsValidGlobalRole(newRole) {
		return models.User{}, fmt.Errorf("%w: unknown global role %q", ErrValidation, newRole)
	}

	var target models.User
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		actor, err := loadActor(repos, actorID)
		if err != nil {
			return err
		}
		if !CanChangeGlobalRole(actor, targetID) {
			return ErrForbidden
		}
		target, err = repos.Users.FindByID(targetID)
		if err != nil {
			return translateStoreError(err, ErrUserNotFound)
		}
		if target.GlobalRole == newRole {
			return nil
		}

		if newRole != models.GlobalRoleLeader {
			_, leads, err := repos.Members.FindLeadershipByUser(target.ID)
			if err != nil {
				return err
			}
			if leads {
				return ErrLeadershipHeld
			}
		}

		if err := repos.Users.UpdateGlobalRole(target.ID, newRole); err != nil {
			return err
		}
		target.GlobalRole = newRole
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return target, nil
}
