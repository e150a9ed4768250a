package api

import "github.com/gofiber/fiber/v2"

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) ConsistencyReport(c *fiber.Ctx) error {
	report, err := handler.consistencyService.Check(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"clean": report.Clean(), "report": report})
}

func (handler *Handler) RepairConsistency(c *fiber.Ctx) error {
	result, err := handler.consistencyService.Repair(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// EventStats exposes dispatcher counters so failed side effects are visible.
func (handler *Handler) EventStats(c *fiber.Ctx) error {
	source, ok := handler.publisher.(StatsSource)
	if !ok {
		return c.JSON(fiber.Map{"available": false})
	}
	return c.JSON(fiber.Map{"available": true, "stats": source.Stats()})
}
