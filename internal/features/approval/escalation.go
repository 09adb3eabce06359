package approval

import (
	"context"
	"fmt"
	"time"

	"go-clm/internal/common/apperrors"
	"go-clm/internal/common/models"
	"go-clm/internal/features/contract"
	"go-clm/internal/features/event"
	"go-clm/internal/features/permission"
	"go-clm/internal/features/user"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// LegalHeadRole is the role name resolved as the escalation target.
const LegalHeadRole = "legal_head"

// EscalationService hands a pending legal gate up to the organization's legal
// head and back. The gate stays PENDING throughout; escalation only changes
// who is expected to act, which is recorded on the gate itself.
type EscalationService interface {
	Escalate(ctx context.Context, contractID, orgID, actorID string, permissions []string) (*WorkflowResult, error)
	ReturnToOriginator(ctx context.Context, contractID, orgID, actorID, comment string) (*WorkflowResult, error)
}

type EscalationServiceImpl struct {
	ContractRepo contract.ContractRepository
	ApprovalRepo ApprovalRepository
	UserRepo     user.UserRepository
	Tx           TxRunner
	Dispatcher   event.Dispatcher
	Logger       *zap.Logger
}

func NewEscalationService(
	contractRepo contract.ContractRepository,
	approvalRepo ApprovalRepository,
	userRepo user.UserRepository,
	tx TxRunner,
	dispatcher event.Dispatcher,
	logger *zap.Logger,
) EscalationService {
	return &EscalationServiceImpl{
		ContractRepo: contractRepo,
		ApprovalRepo: approvalRepo,
		UserRepo:     userRepo,
		Tx:           tx,
		Dispatcher:   dispatcher,
		Logger:       logger,
	}
}

func (s *EscalationServiceImpl) load(ctx context.Context, contractID, orgID string) (*models.Contract, primitive.ObjectID, error) {
	cid, err := primitive.ObjectIDFromHex(contractID)
	if err != nil {
		return nil, primitive.NilObjectID, apperrors.NotFound("Contract not found.")
	}
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return nil, primitive.NilObjectID, apperrors.AccessDenied("Invalid organization.")
	}

	c, err := s.ContractRepo.FindByID(ctx, cid)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	if c == nil {
		return nil, primitive.NilObjectID, apperrors.NotFound("Contract not found.")
	}
	if c.OrgID != oid {
		return nil, primitive.NilObjectID, apperrors.AccessDenied("This contract belongs to a different organization.")
	}
	return c, oid, nil
}

func (s *EscalationServiceImpl) result(ctx context.Context, contractID primitive.ObjectID) (*WorkflowResult, error) {
	c, err := s.ContractRepo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	approvals, err := s.ApprovalRepo.FindLiveByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return &WorkflowResult{Contract: c, Approvals: approvals}, nil
}

// Escalate retargets the pending legal gate to the organization's legal
// head: the gate stays PENDING but its actor becomes the head. Escalating an
// already escalated gate refreshes the target, so a later head change takes
// effect without returning the gate first.
func (s *EscalationServiceImpl) Escalate(ctx context.Context, contractID, orgID, actorID string, permissions []string) (*WorkflowResult, error) {
	c, oid, err := s.load(ctx, contractID, orgID)
	if err != nil {
		return nil, err
	}

	if !permission.Has(permissions, permission.CodeEscalate) {
		return nil, apperrors.Forbidden("You do not have permission to escalate contracts.")
	}

	switch c.Status {
	case models.ContractStatusSentToLegal, models.ContractStatusPendingLegalHead:
	default:
		return nil, apperrors.Forbidden(fmt.Sprintf("A contract in status %s cannot be escalated.", c.Status))
	}

	gate, err := s.ApprovalRepo.FindLiveByContractAndType(ctx, c.ID, models.ApprovalTypeLegal)
	if err != nil {
		return nil, err
	}
	if gate == nil || gate.Status != models.ApprovalStatusPending {
		return nil, apperrors.Forbidden("There is no pending legal approval to escalate.")
	}

	head, err := s.UserRepo.FindFirstByRole(ctx, oid, LegalHeadRole)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, apperrors.NotFound("No legal head is configured for this organization.")
	}

	actorOID, err := primitive.ObjectIDFromHex(actorID)
	if err != nil {
		return nil, apperrors.AccessDenied("Invalid actor.")
	}

	oldStatus := c.Status
	now := time.Now()
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ContractRepo.Touch(ctx, c.ID); err != nil {
			return err
		}

		g, err := s.ApprovalRepo.FindByID(ctx, gate.ID)
		if err != nil {
			return err
		}
		if g == nil || g.Status != models.ApprovalStatusPending {
			return apperrors.Forbidden("There is no pending legal approval to escalate.")
		}

		set := bson.M{
			"actor_id":     head.ID,
			"escalated_to": head.ID,
		}
		if !g.IsEscalated() {
			set["escalated_by"] = actorOID
			set["escalated_at"] = now
		}
		if err := s.ApprovalRepo.Update(ctx, gate.ID, bson.M{"$set": set}); err != nil {
			return err
		}
		return s.ContractRepo.Update(ctx, c.ID, bson.M{"status": models.ContractStatusPendingLegalHead})
	})
	if err != nil {
		return nil, err
	}

	result, err := s.result(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	s.dispatch(event.ActionEscalate, result, actorID, oldStatus, "")
	return result, nil
}

// ReturnToOriginator sends an escalated gate back to the reviewer who raised
// it, with mandatory guidance from the legal head.
func (s *EscalationServiceImpl) ReturnToOriginator(ctx context.Context, contractID, orgID, actorID, comment string) (*WorkflowResult, error) {
	c, _, err := s.load(ctx, contractID, orgID)
	if err != nil {
		return nil, err
	}

	if c.Status != models.ContractStatusPendingLegalHead {
		return nil, apperrors.Forbidden("Only an escalated contract can be returned to its originator.")
	}
	if comment == "" {
		return nil, apperrors.Validation("A comment is required when returning an escalation.")
	}

	gate, err := s.ApprovalRepo.FindLiveByContractAndType(ctx, c.ID, models.ApprovalTypeLegal)
	if err != nil {
		return nil, err
	}
	if gate == nil || !gate.IsEscalated() {
		return nil, apperrors.Forbidden("There is no escalated legal approval on this contract.")
	}

	oldStatus := c.Status
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ContractRepo.Touch(ctx, c.ID); err != nil {
			return err
		}

		g, err := s.ApprovalRepo.FindByID(ctx, gate.ID)
		if err != nil {
			return err
		}
		if g == nil || g.Status != models.ApprovalStatusPending || !g.IsEscalated() {
			return apperrors.Forbidden("There is no escalated legal approval on this contract.")
		}

		if err := s.ApprovalRepo.Update(ctx, gate.ID, bson.M{
			"$set": bson.M{
				"comment":  comment,
				"actor_id": g.EscalatedBy,
			},
			"$unset": bson.M{"escalated_by": "", "escalated_to": "", "escalated_at": ""},
		}); err != nil {
			return err
		}
		return s.ContractRepo.Update(ctx, c.ID, bson.M{"status": models.ContractStatusSentToLegal})
	})
	if err != nil {
		return nil, err
	}

	result, err := s.result(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	s.dispatch(event.ActionReturn, result, actorID, oldStatus, comment)
	return result, nil
}

func (s *EscalationServiceImpl) dispatch(action string, result *WorkflowResult, actorID string, oldStatus models.ContractStatus, comment string) {
	if result == nil || result.Contract == nil {
		return
	}
	s.Dispatcher.Dispatch(event.TransitionEvent{
		Action:    action,
		Contract:  *result.Contract,
		Approvals: result.Approvals,
		ActorID:   actorID,
		OldStatus: oldStatus,
		NewStatus: result.Contract.Status,
		Comment:   comment,
	})
}
