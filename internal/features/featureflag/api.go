package featureflag

import (
	"go-clm/internal/config"
	"go-clm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type FeatureFlagApi struct {
	controller *FeatureFlagController
	config     *config.Config
}

func NewFeatureFlagApi(controller *FeatureFlagController, config *config.Config) *FeatureFlagApi {
	return &FeatureFlagApi{
		controller: controller,
		config:     config,
	}
}

func (h *FeatureFlagApi) Setup(app *fiber.App) {
	group := app.Group("/api/feature-flags", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.List)
	group.Put("/:code", h.controller.Set)
}
