package audit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{
		Service: service,
	}
}

// ListLogs godoc
// @Summary List audit logs
// @Tags audit
// @Produce json
// @Param module query string false "Filter by module"
// @Param record_id query string false "Filter by record"
// @Success 200 {object} map[string]interface{}
// @Router /api/audit-logs [get]
func (c *AuditController) ListLogs(ctx *fiber.Ctx) error {
	page, _ := strconv.ParseInt(ctx.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(ctx.Query("limit", "20"), 10, 64)

	filters := map[string]interface{}{}
	if module := ctx.Query("module"); module != "" {
		filters["module"] = module
	}
	if recordID := ctx.Query("record_id"); recordID != "" {
		filters["record_id"] = recordID
	}

	logs, err := c.Service.ListLogs(ctx.UserContext(), filters, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"data":  logs,
		"page":  page,
		"limit": limit,
	})
}
