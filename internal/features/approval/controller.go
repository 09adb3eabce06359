package approval

import (
	"go-clm/internal/common/apperrors"
	"go-clm/internal/common/models"
	"go-clm/internal/middleware"
	"go-clm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type ApprovalController struct {
	Workflow   WorkflowService
	Escalation EscalationService
}

func NewApprovalController(workflow WorkflowService, escalation EscalationService) *ApprovalController {
	return &ApprovalController{
		Workflow:   workflow,
		Escalation: escalation,
	}
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type submitRequest struct {
	Target string `json:"target"`
}

type signatureRequest struct {
	DocumentID string `json:"document_id"`
}

func callerOf(ctx *fiber.Ctx) (*utils.UserClaims, []string) {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	permissions, _ := ctx.Locals(middleware.PermissionsKey).([]string)
	return claims, permissions
}

func respond(ctx *fiber.Ctx, result *WorkflowResult, err error) error {
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(result)
}

// Submit godoc
// @Summary Submit a contract for review
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Param body body submitRequest false "Optional single review target (LEGAL or FINANCE)"
// @Success 200 {object} WorkflowResult
// @Router /api/contracts/{id}/submit [post]
func (c *ApprovalController) Submit(ctx *fiber.Ctx) error {
	claims, _ := callerOf(ctx)

	var input submitRequest
	_ = ctx.BodyParser(&input)

	var target *models.ApprovalType
	if input.Target != "" {
		t := models.ApprovalType(input.Target)
		if t != models.ApprovalTypeLegal && t != models.ApprovalTypeFinance {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid review target"})
		}
		target = &t
	}

	result, err := c.Workflow.Submit(ctx.UserContext(), ctx.Params("id"), claims.OrgID, claims.UserID, target)
	return respond(ctx, result, err)
}

// Approve godoc
// @Summary Approve a pending gate
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Success 200 {object} WorkflowResult
// @Router /api/approvals/{id}/approve [post]
func (c *ApprovalController) Approve(ctx *fiber.Ctx) error {
	claims, permissions := callerOf(ctx)

	var input commentRequest
	_ = ctx.BodyParser(&input)

	result, err := c.Workflow.Approve(ctx.UserContext(), ctx.Params("id"), claims.OrgID, claims.UserID, permissions, input.Comment)
	return respond(ctx, result, err)
}

// Reject godoc
// @Summary Reject a pending gate, terminating the review cycle
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Success 200 {object} WorkflowResult
// @Router /api/approvals/{id}/reject [post]
func (c *ApprovalController) Reject(ctx *fiber.Ctx) error {
	claims, permissions := callerOf(ctx)

	var input commentRequest
	_ = ctx.BodyParser(&input)

	result, err := c.Workflow.Reject(ctx.UserContext(), ctx.Params("id"), claims.OrgID, claims.UserID, permissions, input.Comment)
	return respond(ctx, result, err)
}

// RequestRevision godoc
// @Summary Request changes on a pending gate
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Success 200 {object} WorkflowResult
// @Router /api/approvals/{id}/request-revision [post]
func (c *ApprovalController) RequestRevision(ctx *fiber.Ctx) error {
	claims, permissions := callerOf(ctx)

	var input commentRequest
	_ = ctx.BodyParser(&input)

	result, err := c.Workflow.RequestRevision(ctx.UserContext(), ctx.Params("id"), claims.OrgID, claims.UserID, permissions, input.Comment)
	return respond(ctx, result, err)
}

// Escalate godoc
// @Summary Escalate the pending legal gate to the legal head
// @Tags workflow
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} WorkflowResult
// @Router /api/contracts/{id}/escalate [post]
func (c *ApprovalController) Escalate(ctx *fiber.Ctx) error {
	claims, permissions := callerOf(ctx)

	result, err := c.Escalation.Escalate(ctx.UserContext(), ctx.Params("id"), claims.OrgID, claims.UserID, permissions)
	return respond(ctx, result, err)
}

// Return godoc
// @Summary Return an escalated contract to the originating reviewer
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} WorkflowResult
// @Router /api/contracts/{id}/return [post]
func (c *ApprovalController) Return(ctx *fiber.Ctx) error {
	claims, _ := callerOf(ctx)

	var input commentRequest
	_ = ctx.BodyParser(&input)

	result, err := c.Escalation.ReturnToOriginator(ctx.UserContext(), ctx.Params("id"), claims.OrgID, claims.UserID, input.Comment)
	return respond(ctx, result, err)
}

// Cancel godoc
// @Summary Cancel a contract
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} WorkflowResult
// @Router /api/contracts/{id}/cancel [post]
func (c *ApprovalController) Cancel(ctx *fiber.Ctx) error {
	claims, _ := callerOf(ctx)

	var input commentRequest
	_ = ctx.BodyParser(&input)

	result, err := c.Workflow.Cancel(ctx.UserContext(), ctx.Params("id"), claims.OrgID, claims.UserID, input.Comment)
	return respond(ctx, result, err)
}

// Send godoc
// @Summary Send an approved contract to the counterparty
// @Tags workflow
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} WorkflowResult
// @Router /api/contracts/{id}/send [post]
func (c *ApprovalController) Send(ctx *fiber.Ctx) error {
	claims, _ := callerOf(ctx)

	result, err := c.Workflow.SendToCounterparty(ctx.UserContext(), ctx.Params("id"), claims.OrgID, claims.UserID)
	return respond(ctx, result, err)
}

// ConfirmSignature godoc
// @Summary Confirm the counterparty signature and activate the contract
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Param body body signatureRequest true "Signed document reference"
// @Success 200 {object} WorkflowResult
// @Router /api/contracts/{id}/signature [post]
func (c *ApprovalController) ConfirmSignature(ctx *fiber.Ctx) error {
	claims, _ := callerOf(ctx)

	var input signatureRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := c.Workflow.ConfirmSignature(ctx.UserContext(), ctx.Params("id"), claims.OrgID, claims.UserID, input.DocumentID)
	return respond(ctx, result, err)
}
