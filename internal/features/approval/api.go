package approval

import (
	"go-clm/internal/config"
	"go-clm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ApprovalApi struct {
	controller *ApprovalController
	resolver   middleware.PermissionResolver
	config     *config.Config
}

func NewApprovalApi(controller *ApprovalController, resolver middleware.PermissionResolver, config *config.Config) *ApprovalApi {
	return &ApprovalApi{
		controller: controller,
		resolver:   resolver,
		config:     config,
	}
}

func (h *ApprovalApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)
	perms := middleware.PermissionsMiddleware(h.resolver)

	contracts := app.Group("/api/contracts", auth, perms)
	contracts.Post("/:id/submit", h.controller.Submit)
	contracts.Post("/:id/escalate", h.controller.Escalate)
	contracts.Post("/:id/return", h.controller.Return)
	contracts.Post("/:id/cancel", h.controller.Cancel)
	contracts.Post("/:id/send", h.controller.Send)
	contracts.Post("/:id/signature", h.controller.ConfirmSignature)

	approvals := app.Group("/api/approvals", auth, perms)
	approvals.Post("/:id/approve", h.controller.Approve)
	approvals.Post("/:id/reject", h.controller.Reject)
	approvals.Post("/:id/request-revision", h.controller.RequestRevision)
}
