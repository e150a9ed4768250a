package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/security"
	"github.com/terraincognita07/boardkeeper/internal/services"
)

const temporaryPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

type ResetPasswordOptions struct {
	Email string
	// Prompt reads the new password from Input without echo instead of
	// generating a temporary one.
	Prompt bool
	Input  *os.File
	Output io.Writer
}

func RunResetPassword(ctx context.Context, store *db.Store, options ResetPasswordOptions) error {
	if services.NormalizeAuthEmail(options.Email) == "" {
		return errors.New("a valid email is required")
	}
	out := options.Output
	if out == nil {
		out = os.Stdout
	}

	password := ""
	mustChange := true
	if options.Prompt {
		chosen, err := promptNewPassword(options.Input, out)
		if err != nil {
			return err
		}
		password = chosen
		mustChange = false
	} else {
		generated, err := generateTemporaryPassword(12)
		if err != nil {
			return fmt.Errorf("generate temporary password: %w", err)
		}
		password = generated
	}

	user, err := services.NewAuthService(store).ResetPassword(ctx, options.Email, password, mustChange)
	if errors.Is(err, services.ErrNotFound) {
		return fmt.Errorf("user %s not found", services.NormalizeAuthEmail(options.Email))
	}
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	fmt.Fprintf(out, "Password reset for %s\n", user.Email)
	if mustChange {
		fmt.Fprintf(out, "Temporary password: %s\n", password)
		fmt.Fprintln(out, "User must change password on next login.")
	}
	return nil
}

func promptNewPassword(in *os.File, out io.Writer) (string, error) {
	if in == nil {
		in = os.Stdin
	}

	reader := bufio.NewReader(in)
	fmt.Fprint(out, "New password: ")
	first, err := readPasswordNoEcho(in, reader)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := readPasswordNoEcho(in, reader)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if err := services.ValidatePasswordStrength(string(first)); err != nil {
		return "", errors.New("password must be at least 8 characters with upper, lower case letters and a digit")
	}
	return string(first), nil
}

func generateTemporaryPassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}
	return security.RandomString(length, temporaryPasswordAlphabet)
}
