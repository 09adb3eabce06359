package cron_feature

import (
	"go-clm/internal/config"
	"go-clm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CronApi struct {
	controller *CronController
	config     *config.Config
}

func NewCronApi(controller *CronController, config *config.Config) *CronApi {
	return &CronApi{
		controller: controller,
		config:     config,
	}
}

func (h *CronApi) Setup(app *fiber.App) {
	group := app.Group("/api/cron", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/reminders", h.controller.RunReminders)
	group.Post("/sync", h.controller.RunSync)
}
