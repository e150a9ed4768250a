package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAuthCredentialsInvalid = errors.New("auth credentials invalid")
	ErrWeakPassword           = errors.New("weak password")
	ErrEmailTaken             = fmt.Errorf("%w: email already registered", ErrConflict)
)

const maxUserNameLength = 120

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}

func ValidatePasswordStrength(password string) error {
	if len([]rune(password)) < 8 {
		return ErrWeakPassword
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if hasUpper && hasLower && hasDigit {
		return nil
	}
	return ErrWeakPassword
}

type AuthService struct {
	store *db.Store
	now   func() time.Time
}

func NewAuthService(store *db.Store) *AuthService {
	return &AuthService{store: store, now: utcNow}
}

// Register creates an account. The first account on an empty database is
// the ADMIN; everyone after that starts as MEMBER.
func (service *AuthService) Register(ctx context.Context, emailRaw string, name string, password string) (models.User, error) {
	email := NormalizeAuthEmail(emailRaw)
	name = strings.TrimSpace(name)
	if email == "" {
		return models.User{}, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if name == "" || len(name) > maxUserNameLength {
		return models.User{}, fmt.Errorf("%w: name is required and must be at most %d characters", ErrValidation, maxUserNameLength)
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = service.store.Transaction(ctx, func(repos *db.Repositories) error {
		exists, err := repos.Users.ExistsByNormalizedEmail(email)
		if err != nil {
			return err
		}
		if exists {
			return ErrEmailTaken
		}
		count, err := repos.Users.CountUsers()
		if err != nil {
			return err
		}

		role := models.GlobalRoleMember
		if count == 0 {
			role = models.GlobalRoleAdmin
		}
		now := service.now()
		user = models.User{
			Email:        email,
			Name:         name,
			PasswordHash: string(hash),
			GlobalRole:   role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repos.Users.Create(&user); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Authenticate never distinguishes an unknown email from a wrong password.
func (service *AuthService) Authenticate(ctx context.Context, emailRaw string, password string) (models.User, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" || strings.TrimSpace(password) == "" {
		return models.User{}, ErrAuthCredentialsInvalid
	}

	user, err := service.store.Repos(ctx).Users.FindByNormalizedEmail(email)
	if err != nil {
		if db.IsNotFound(err) {
			return models.User{}, ErrAuthCredentialsInvalid
		}
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	return user, nil
}

func (service *AuthService) FindByID(ctx context.Context, userID uint) (models.User, error) {
	user, err := service.store.Repos(ctx).Users.FindByID(userID)
	if err != nil {
		return models.User{}, translateStoreError(err, ErrUserNotFound)
	}
	return user, nil
}

// ResetPassword stores a new hash and forces a change on next login.
func (service *AuthService) ResetPassword(ctx context.Context, emailRaw string, password string, mustChange bool) (models.User, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return models.User{}, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = service.store.Transaction(ctx, func(repos *db.Repositories) error {
		var err error
		user, err = repos.Users.FindByNormalizedEmail(email)
		if err != nil {
			return translateStoreError(err, ErrUserNotFound)
		}
		if err := repos.Users.UpdatePassword(user.ID, string(hash), mustChange); err != nil {
			return err
		}
		user.PasswordHash = string(hash)
		user.MustChangePassword = mustChange
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// ChangePassword requires the current password and clears the forced-change
// flag.
func (service *AuthService) ChangePassword(ctx context.Context, userID uint, current string, next string) error {
	if err := ValidatePasswordStrength(next); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if current == next {
		return fmt.Errorf("%w: new password must differ from the current one", ErrValidation)
	}

	return service.store.Transaction(ctx, func(repos *db.Repositories) error {
		user, err := repos.Users.FindByID(userID)
		if err != nil {
			return translateStoreError(err, ErrUserNotFound)
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
			return ErrAuthCredentialsInvalid
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		return repos.Users.UpdatePassword(user.ID, string(hash), false)
	})
}
