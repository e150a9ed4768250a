package api

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/boardkeeper/internal/services"
)

func apiError(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message, "code": code})
}

// respondServiceError maps the service error taxonomy onto HTTP. Typed
// errors carry their detail into the payload.
func respondServiceError(c *fiber.Ctx, err error) error {
	var unfinished *services.UnfinishedCardsError
	if errors.As(err, &unfinished) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":            err.Error(),
			"code":             "conflict",
			"unfinished_cards": unfinished.Cards,
		})
	}
	var activeTimer *services.ActiveTimerError
	if errors.As(err, &activeTimer) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":           err.Error(),
			"code":            "active_timer_exists",
			"active_timer_id": activeTimer.TimeLogID,
		})
	}
	var limit *services.TimerLimitError
	if errors.As(err, &limit) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     err.Error(),
			"code":      "limit_exceeded",
			"max_hours": limit.MaxHours,
		})
	}

	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return apiError(c, fiber.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, services.ErrForbidden):
		return apiError(c, fiber.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, services.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrAlreadyStopped):
		return apiError(c, fiber.StatusConflict, "already_stopped", err.Error())
	case errors.Is(err, services.ErrConflict):
		return apiError(c, fiber.StatusConflict, "conflict", err.Error())
	case errors.Is(err, services.ErrInvalidState):
		return apiError(c, fiber.StatusUnprocessableEntity, "invalid_state", err.Error())
	case errors.Is(err, services.ErrInvalidRole):
		return apiError(c, fiber.StatusUnprocessableEntity, "invalid_role", err.Error())
	case errors.Is(err, services.ErrLimitExceeded):
		return apiError(c, fiber.StatusUnprocessableEntity, "limit_exceeded", err.Error())
	case errors.Is(err, services.ErrValidation):
		return apiError(c, fiber.StatusBadRequest, "validation", err.Error())
	}

	log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	return apiError(c, fiber.StatusInternalServerError, "internal", "internal error")
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	raw := strings.TrimSpace(c.Params(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, services.ErrValidation
	}
	return uint(value), nil
}

func queryID(c *fiber.Ctx, name string) (uint, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, services.ErrValidation
	}
	return uint(value), nil
}

// queryTime accepts RFC 3339 timestamps or plain dates in the handler's
// location. With rangeEnd set a plain date stands for the whole day, so it
// resolves to the following midnight for use as an exclusive bound.
func (handler *Handler) queryTime(c *fiber.Ctx, name string, rangeEnd bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		value := parsed.UTC()
		return &value, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, handler.location)
	if err != nil {
		return nil, services.ErrValidation
	}
	if rangeEnd {
		parsed = parsed.AddDate(0, 0, 1)
	}
	value := parsed.UTC()
	return &value, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return services.ErrValidation
	}
	return nil
}
