package contract

import (
	"go-clm/internal/config"
	"go-clm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ContractApi struct {
	controller *ContractController
	config     *config.Config
}

func NewContractApi(controller *ContractController, config *config.Config) *ContractApi {
	return &ContractApi{
		controller: controller,
		config:     config,
	}
}

func (h *ContractApi) Setup(app *fiber.App) {
	group := app.Group("/api/contracts", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/", h.controller.Create)
	group.Get("/", h.controller.List)
	group.Get("/:id", h.controller.Get)
}
