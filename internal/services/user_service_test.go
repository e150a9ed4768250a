package services

import (
	"context"
	"errors"
	"testing"

	"github.com/terraincognita07/boardkeeper/internal/models"
)

func TestRegisterPromotesFirstUserToAdmin(t *testing.T) {
	store := newTestStore(t)
	auth := NewAuthService(store)
	ctx := context.Background()

	first, err := auth.Register(ctx, " First@Example.com ", "First", "StrongPass1")
	if err != nil {
		t.Fatalf("register first: %v", err)
	}
	if first.GlobalRole != models.GlobalRoleAdmin || first.Email != "first@example.com" {
		t.Fatalf("expected normalized admin, got %#v", first)
	}
	second, err := auth.Register(ctx, "second@example.com", "Second", "StrongPass1")
	if err != nil {
		t.Fatalf("register second: %v", err)
	}
	if second.GlobalRole != models.GlobalRoleMember {
		t.Fatalf("expected MEMBER, got %q", second.GlobalRole)
	}

	if _, err := auth.Register(ctx, "FIRST@example.com", "Again", "StrongPass1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
	if _, err := auth.Register(ctx, "third@example.com", "Third", "weak"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for weak password, got %v", err)
	}
}

func TestAuthenticateHidesWhichCredentialFailed(t *testing.T) {
	store := newTestStore(t)
	auth := NewAuthService(store)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "user@example.com", "User", "StrongPass1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := auth.Authenticate(ctx, "user@example.com", "StrongPass1"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	for _, attempt := range [][2]string{
		{"user@example.com", "WrongPass1"},
		{"nobody@example.com", "StrongPass1"},
		{"not-an-email", "StrongPass1"},
	} {
		if _, err := auth.Authenticate(ctx, attempt[0], attempt[1]); !errors.Is(err, ErrAuthCredentialsInvalid) {
			t.Fatalf("expected ErrAuthCredentialsInvalid for %q, got %v", attempt[0], err)
		}
	}
}

func TestChangePasswordClearsForcedChange(t *testing.T) {
	store := newTestStore(t)
	auth := NewAuthService(store)
	ctx := context.Background()

	user, err := auth.Register(ctx, "user@example.com", "User", "StrongPass1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := auth.ResetPassword(ctx, "user@example.com", "TempPass99", true); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if err := auth.ChangePassword(ctx, user.ID, "StrongPass1", "NewStrong22"); !errors.Is(err, ErrAuthCredentialsInvalid) {
		t.Fatalf("expected stale current password to fail, got %v", err)
	}
	if err := auth.ChangePassword(ctx, user.ID, "TempPass99", "weak"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for weak password, got %v", err)
	}
	if err := auth.ChangePassword(ctx, user.ID, "TempPass99", "NewStrong22"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	updated, err := auth.Authenticate(ctx, "user@example.com", "NewStrong22")
	if err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if updated.MustChangePassword {
		t.Fatal("expected forced change flag to be cleared")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	for _, password := range []string{"Short1", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		if err := ValidatePasswordStrength(password); !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("expected ErrWeakPassword for %q, got %v", password, err)
		}
	}
	if err := ValidatePasswordStrength("StrongPass1"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestChangeUserRoleRules(t *testing.T) {
	world := newTestWorld(t)

	if _, err := world.users.ChangeUserRole(world.ctx, world.dev.ID, models.GlobalRoleLeader, world.lead.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin actor, got %v", err)
	}
	if _, err := world.users.ChangeUserRole(world.ctx, world.admin.ID, models.GlobalRoleMember, world.admin.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for self change, got %v", err)
	}
	if _, err := world.users.ChangeUserRole(world.ctx, world.dev.ID, "ROOT", world.admin.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}

	_, err := world.users.ChangeUserRole(world.ctx, world.lead.ID, models.GlobalRoleMember, world.admin.ID)
	if !errors.Is(err, ErrLeadershipHeld) {
		t.Fatalf("expected ErrLeadershipHeld while leading a project, got %v", err)
	}

	promoted, err := world.users.ChangeUserRole(world.ctx, world.dev.ID, models.GlobalRoleLeader, world.admin.ID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.GlobalRole != models.GlobalRoleLeader {
		t.Fatalf("expected LEADER, got %q", promoted.GlobalRole)
	}
	if _, err := world.users.ChangeUserRole(world.ctx, world.dev.ID, models.GlobalRoleMember, world.admin.ID); err != nil {
		t.Fatalf("demote non-leading user: %v", err)
	}
}
