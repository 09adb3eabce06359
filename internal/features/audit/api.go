package audit

import (
	"go-clm/internal/config"
	"go-clm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
}

func NewAuditApi(controller *AuditController, config *config.Config) *AuditApi {
	return &AuditApi{
		controller: controller,
		config:     config,
	}
}

func (h *AuditApi) Setup(app *fiber.App) {
	group := app.Group("/api/audit-logs", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.ListLogs)
}
