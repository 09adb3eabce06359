package contract

import (
	"strconv"

	"go-clm/internal/common/apperrors"
	"go-clm/internal/common/models"
	"go-clm/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContractController struct {
	Service ContractService
}

func NewContractController(service ContractService) *ContractController {
	return &ContractController{
		Service: service,
	}
}

type createContractRequest struct {
	Title            string `json:"title"`
	CounterpartyName string `json:"counterparty_name"`
}

// Create godoc
// @Summary Create a draft contract
// @Tags contracts
// @Accept json
// @Produce json
// @Param contract body createContractRequest true "Contract"
// @Success 201 {object} models.Contract
// @Router /api/contracts [post]
func (c *ContractController) Create(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	orgID, err := primitive.ObjectIDFromHex(claims.OrgID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid organization ID"})
	}
	actorID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var input createContractRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	contract, err := c.Service.CreateDraft(ctx.UserContext(), orgID, actorID, input.Title, input.CounterpartyName)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(contract)
}

// Get godoc
// @Summary Get a contract with its live approvals
// @Tags contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} ContractWithApprovals
// @Router /api/contracts/{id} [get]
func (c *ContractController) Get(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	orgID, err := primitive.ObjectIDFromHex(claims.OrgID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid organization ID"})
	}
	id, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid contract ID"})
	}

	result, err := c.Service.Get(ctx.UserContext(), id, orgID)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(result)
}

// List godoc
// @Summary List contracts for the caller's organization
// @Tags contracts
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Router /api/contracts [get]
func (c *ContractController) List(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)

	orgID, err := primitive.ObjectIDFromHex(claims.OrgID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid organization ID"})
	}

	page, _ := strconv.ParseInt(ctx.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(ctx.Query("limit", "20"), 10, 64)
	status := models.ContractStatus(ctx.Query("status"))

	contracts, total, err := c.Service.List(ctx.UserContext(), orgID, status, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"data":  contracts,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
