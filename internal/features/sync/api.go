package sync

import (
	"go-clm/internal/config"
	"go-clm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SyncApi struct {
	controller *SyncController
	config     *config.Config
}

func NewSyncApi(controller *SyncController, config *config.Config) *SyncApi {
	return &SyncApi{
		controller: controller,
		config:     config,
	}
}

func (h *SyncApi) Setup(app *fiber.App) {
	group := app.Group("/api/sync", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/run", h.controller.Run)
	group.Get("/logs", h.controller.Logs)
}
