package sync

import (
	"strconv"

	"go-clm/internal/common/apperrors"
	"go-clm/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SyncController struct {
	Service SyncService
}

func NewSyncController(service SyncService) *SyncController {
	return &SyncController{
		Service: service,
	}
}

// Run godoc
// @Summary Push the organization's contract register to the reporting database
// @Tags sync
// @Produce json
// @Success 200 {object} SyncLog
// @Router /api/sync/run [post]
func (c *SyncController) Run(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	orgID, err := primitive.ObjectIDFromHex(claims.OrgID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid organization ID"})
	}

	log, err := c.Service.RunSync(ctx.UserContext(), orgID)
	if err != nil {
		status := apperrors.HTTPStatus(err)
		if log != nil {
			return ctx.Status(status).JSON(fiber.Map{"error": err.Error(), "log": log})
		}
		return ctx.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(log)
}

// Logs godoc
// @Summary List recent sync runs
// @Tags sync
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {array} SyncLog
// @Router /api/sync/logs [get]
func (c *SyncController) Logs(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	orgID, err := primitive.ObjectIDFromHex(claims.OrgID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid organization ID"})
	}

	limit, _ := strconv.ParseInt(ctx.Query("limit", "50"), 10, 64)

	logs, err := c.Service.ListLogs(ctx.UserContext(), orgID, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(logs)
}
