package cron_feature

import (
	"github.com/gofiber/fiber/v2"
)

type CronController struct {
	Service CronService
}

func NewCronController(service CronService) *CronController {
	return &CronController{
		Service: service,
	}
}

// RunReminders godoc
// @Summary Run the overdue review reminder sweep now
// @Tags cron
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/cron/reminders [post]
func (c *CronController) RunReminders(ctx *fiber.Ctx) error {
	sent, err := c.Service.RunReminderSweep(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"reminders_sent": sent})
}

// RunSync godoc
// @Summary Run the nightly register sync now
// @Tags cron
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/cron/sync [post]
func (c *CronController) RunSync(ctx *fiber.Ctx) error {
	if err := c.Service.RunNightlySync(ctx.UserContext()); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"status": "ok"})
}
