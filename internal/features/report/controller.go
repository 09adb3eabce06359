package report

import (
	"fmt"

	"go-clm/internal/common/models"
	"go-clm/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportController struct {
	Service ReportService
}

func NewReportController(service ReportService) *ReportController {
	return &ReportController{
		Service: service,
	}
}

// ContractRegister godoc
// @Summary Download the contract register as an Excel workbook
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Filter by contract status"
// @Success 200 {file} binary
// @Router /api/reports/contract-register [get]
func (c *ReportController) ContractRegister(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	orgID, err := primitive.ObjectIDFromHex(claims.OrgID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid organization ID"})
	}

	status := models.ContractStatus(ctx.Query("status"))

	data, filename, err := c.Service.ContractRegisterXLSX(ctx.UserContext(), orgID, status)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return ctx.Send(data)
}
