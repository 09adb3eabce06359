package report

import (
	"go-clm/internal/config"
	"go-clm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportApi struct {
	controller *ReportController
	config     *config.Config
}

func NewReportApi(controller *ReportController, config *config.Config) *ReportApi {
	return &ReportApi{
		controller: controller,
		config:     config,
	}
}

func (h *ReportApi) Setup(app *fiber.App) {
	group := app.Group("/api/reports", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/contract-register", h.controller.ContractRegister)
}
