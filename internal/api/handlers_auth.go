package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/boardkeeper/internal/models"
	"github.com/terraincognita07/boardkeeper/internal/services"
)

type registerInput struct {
	Email    string `json:"email" form:"email"`
	Name     string `json:"name" form:"name"`
	Password string `json:"password" form:"password"`
}

type credentialsInput struct {
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
	RememberMe bool   `json:"remember_me" form:"remember_me"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
}

type sessionResponse struct {
	User               models.User `json:"user"`
	Token              string      `json:"token"`
	MustChangePassword bool        `json:"must_change_password"`
}

func (handler *Handler) Register(c *fiber.Ctx) error {
	input := registerInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	user, err := handler.authService.Register(c.UserContext(), input.Email, input.Name, input.Password)
	if err != nil {
		return respondServiceError(c, err)
	}
	return handler.startSession(c, &user, false, fiber.StatusCreated)
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	input := credentialsInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	key := loginLimiterKey(c, input.Email)
	now := time.Now()
	if handler.loginLimiter.blocked(key, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too_many_attempts", "too many failed attempts, try again later")
	}

	user, err := handler.authService.Authenticate(c.UserContext(), input.Email, input.Password)
	if errors.Is(err, services.ErrAuthCredentialsInvalid) {
		handler.loginLimiter.recordFailure(key, now)
		return apiError(c, fiber.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	}
	if err != nil {
		return respondServiceError(c, err)
	}

	handler.loginLimiter.clear(key)
	return handler.startSession(c, &user, input.RememberMe, fiber.StatusOK)
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) Me(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return respondServiceError(c, services.ErrUnauthorized)
	}
	return c.JSON(user)
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	input := changePasswordInput{}
	if err := parseBody(c, &input); err != nil {
		return respondServiceError(c, err)
	}

	err := handler.authService.ChangePassword(c.UserContext(), currentUserID(c), input.CurrentPassword, input.NewPassword)
	if errors.Is(err, services.ErrAuthCredentialsInvalid) {
		return apiError(c, fiber.StatusUnauthorized, "invalid_credentials", "current password is incorrect")
	}
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) startSession(c *fiber.Ctx, user *models.User, rememberMe bool, status int) error {
	ttl := defaultAuthTokenTTL
	if rememberMe {
		ttl = rememberAuthTokenTTL
	}
	token, err := handler.buildToken(user, ttl)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "internal", "failed to create session")
	}
	handler.setAuthCookie(c, token, ttl, rememberMe)
	return c.Status(status).JSON(sessionResponse{User: *user, Token: token, MustChangePassword: user.MustChangePassword})
}
