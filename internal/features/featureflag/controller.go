package featureflag

import (
	"go-clm/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FeatureFlagController struct {
	Service FeatureFlagService
}

func NewFeatureFlagController(service FeatureFlagService) *FeatureFlagController {
	return &FeatureFlagController{
		Service: service,
	}
}

// List godoc
// @Summary List feature flags for the caller's organization
// @Tags feature-flags
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/feature-flags [get]
func (c *FeatureFlagController) List(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	orgID, err := primitive.ObjectIDFromHex(claims.OrgID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid organization ID"})
	}

	flags, err := c.Service.ListByOrg(ctx.UserContext(), orgID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": flags})
}

// Set godoc
// @Summary Enable or disable a feature flag
// @Tags feature-flags
// @Accept json
// @Produce json
// @Param code path string true "Flag code"
// @Success 200 {object} map[string]string
// @Router /api/feature-flags/{code} [put]
func (c *FeatureFlagController) Set(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	orgID, err := primitive.ObjectIDFromHex(claims.OrgID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid organization ID"})
	}

	var input struct {
		Enabled bool `json:"enabled"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.SetFlag(ctx.UserContext(), orgID, ctx.Params("code"), input.Enabled); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "Flag updated"})
}
