package approval

import (
	"context"
	"fmt"
	"time"

	"go-clm/internal/common/apperrors"
	"go-clm/internal/common/models"
	"go-clm/internal/config"
	"go-clm/internal/features/contract"
	"go-clm/internal/features/event"
	"go-clm/internal/features/featureflag"
	"go-clm/internal/features/permission"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RevisionCommentPrefix marks a gate rejection as a revision request rather
// than a hard reject.
const RevisionCommentPrefix = "[REVISION] "

// TxRunner executes fn inside one atomic transaction. fn may run more than
// once on write conflict, so it must be free of external side effects.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// WorkflowResult is what every transition returns: the contract as committed
// plus its live gate set.
type WorkflowResult struct {
	Contract  *models.Contract  `json:"contract"`
	Approvals []models.Approval `json:"approvals"`
}

// WorkflowService is the only writer of Contract.status. Every transition
// validates its preconditions, mutates the acted-upon gate, re-derives the
// aggregate status and commits both atomically before any side effect fires.
type WorkflowService interface {
	Submit(ctx context.Context, contractID, orgID, actorID string, target *models.ApprovalType) (*WorkflowResult, error)
	Approve(ctx context.Context, approvalID, orgID, actorID string, permissions []string, comment string) (*WorkflowResult, error)
	Reject(ctx context.Context, approvalID, orgID, actorID string, permissions []string, comment string) (*WorkflowResult, error)
	RequestRevision(ctx context.Context, approvalID, orgID, actorID string, permissions []string, comment string) (*WorkflowResult, error)
	Cancel(ctx context.Context, contractID, orgID, actorID, reason string) (*WorkflowResult, error)
	SendToCounterparty(ctx context.Context, contractID, orgID, actorID string) (*WorkflowResult, error)
	ConfirmSignature(ctx context.Context, contractID, orgID, actorID, documentID string) (*WorkflowResult, error)
}

type WorkflowServiceImpl struct {
	ContractRepo contract.ContractRepository
	ApprovalRepo ApprovalRepository
	Tx           TxRunner
	Flags        featureflag.FeatureFlagService
	Dispatcher   event.Dispatcher
	Config       *config.Config
	Logger       *zap.Logger
}

func NewWorkflowService(
	contractRepo contract.ContractRepository,
	approvalRepo ApprovalRepository,
	tx TxRunner,
	flags featureflag.FeatureFlagService,
	dispatcher event.Dispatcher,
	cfg *config.Config,
	logger *zap.Logger,
) WorkflowService {
	return &WorkflowServiceImpl{
		ContractRepo: contractRepo,
		ApprovalRepo: approvalRepo,
		Tx:           tx,
		Flags:        flags,
		Dispatcher:   dispatcher,
		Config:       cfg,
		Logger:       logger,
	}
}

// loadContract resolves the contract and enforces the organization boundary.
func (s *WorkflowServiceImpl) loadContract(ctx context.Context, contractID, orgID string) (*models.Contract, primitive.ObjectID, error) {
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

// loadApproval resolves the gate and enforces the organization boundary.
func (s *WorkflowServiceImpl) loadApproval(ctx context.Context, approvalID, orgID string) (*models.Approval, error) {
	aid, err := primitive.ObjectIDFromHex(approvalID)
	if err != nil {
		return nil, apperrors.NotFound("Approval not found.")
	}
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return nil, apperrors.AccessDenied("Invalid organization.")
	}

	a, err := s.ApprovalRepo.FindByID(ctx, aid)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.NotFound("Approval not found.")
	}
	if a.OrgID != oid {
		return nil, apperrors.AccessDenied("This approval belongs to a different organization.")
	}
	return a, nil
}

// reloadPending re-reads the gate inside the transaction. The precondition
// check outside the transaction can go stale: when a write conflict makes the
// driver retry the body, a concurrent transition may have resolved the gate
// in the meantime, and acting on it again must fail rather than overwrite.
func (s *WorkflowServiceImpl) reloadPending(ctx context.Context, approvalID primitive.ObjectID) (*models.Approval, error) {
	a, err := s.ApprovalRepo.FindByID(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.NotFound("Approval not found.")
	}
	if a.Status != models.ApprovalStatusPending {
		return nil, apperrors.Forbidden("This approval has already been processed.")
	}
	return a, nil
}

func (s *WorkflowServiceImpl) result(ctx context.Context, contractID primitive.ObjectID) (*WorkflowResult, error) {
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

func (s *WorkflowServiceImpl) dispatch(action string, result *WorkflowResult, actorID string, oldStatus models.ContractStatus, comment string) {
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

// Submit opens the review cycle: it determines the required gate set from the
// organization's feature flags (or a single-target override), replaces any
// stale live gates of those types with fresh pending ones and moves the
// contract to SENT_TO_LEGAL.
func (s *WorkflowServiceImpl) Submit(ctx context.Context, contractID, orgID, actorID string, target *models.ApprovalType) (*WorkflowResult, error) {
	c, oid, err := s.loadContract(ctx, contractID, orgID)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case models.ContractStatusDraft, models.ContractStatusRevisionRequested, models.ContractStatusRejected:
	default:
		return nil, apperrors.Forbidden(fmt.Sprintf("A contract in status %s cannot be submitted for review.", c.Status))
	}

	var required []models.ApprovalType
	if target != nil {
		required = []models.ApprovalType{*target}
	} else {
		required = []models.ApprovalType{models.ApprovalTypeLegal}
		financeEnabled, err := s.Flags.IsEnabled(ctx, featureflag.FlagFinanceWorkflow, oid)
		if err != nil {
			return nil, err
		}
		if financeEnabled {
			required = append(required, models.ApprovalTypeFinance)
		}
	}

	oldStatus := c.Status
	now := time.Now()
	dueDate := now.Add(time.Duration(s.Config.ReviewSLAHours) * time.Hour)

	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ContractRepo.Touch(ctx, c.ID); err != nil {
			return err
		}

		if err := s.ApprovalRepo.DeleteByContractAndTypes(ctx, c.ID, required); err != nil {
			return err
		}

		for _, t := range required {
			approval := &models.Approval{
				ID:         primitive.NewObjectID(),
				ContractID: c.ID,
				OrgID:      oid,
				Type:       t,
				Status:     models.ApprovalStatusPending,
				DueDate:    &dueDate,
				CreatedAt:  now,
			}
			if err := s.ApprovalRepo.Create(ctx, approval); err != nil {
				return err
			}
		}

		return s.ContractRepo.Update(ctx, c.ID, bson.M{
			"status":       models.ContractStatusSentToLegal,
			"submitted_at": now,
			"approved_at":  nil,
			"sent_at":      nil,
			"signed_at":    nil,
		})
	})
	if err != nil {
		return nil, err
	}

	result, err := s.result(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	s.dispatch(event.ActionSubmit, result, actorID, oldStatus, "")
	return result, nil
}

// Approve marks the acted-upon gate approved, re-derives the aggregate status
// over the full live gate set and commits both writes atomically.
func (s *WorkflowServiceImpl) Approve(ctx context.Context, approvalID, orgID, actorID string, permissions []string, comment string) (*WorkflowResult, error) {
	a, err := s.loadApproval(ctx, approvalID, orgID)
	if err != nil {
		return nil, err
	}

	if !permission.Has(permissions, permission.ActCodeFor(a.Type)) {
		return nil, apperrors.Forbidden(fmt.Sprintf("You do not have permission to act on %s approvals.", a.Type))
	}
	if a.Status != models.ApprovalStatusPending {
		return nil, apperrors.Forbidden("This approval has already been processed.")
	}

	actorOID, err := primitive.ObjectIDFromHex(actorID)
	if err != nil {
		return nil, apperrors.AccessDenied("Invalid actor.")
	}

	var oldStatus models.ContractStatus
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.ContractRepo.Touch(ctx, a.ContractID)
		if err != nil {
			return err
		}
		if c == nil {
			return apperrors.NotFound("Contract not found.")
		}
		oldStatus = c.Status

		if _, err := s.reloadPending(ctx, a.ID); err != nil {
			return err
		}

		now := time.Now()
		if err := s.ApprovalRepo.Update(ctx, a.ID, bson.M{"$set": bson.M{
			"status":   models.ApprovalStatusApproved,
			"actor_id": actorOID,
			"acted_at": now,
			"comment":  comment,
		}}); err != nil {
			return err
		}

		gates, err := s.ApprovalRepo.FindLiveByContract(ctx, a.ContractID)
		if err != nil {
			return err
		}

		newStatus := EvaluateContractStatus(gates, a.ID, models.ApprovalStatusApproved)
		set := bson.M{"status": newStatus}
		if newStatus == models.ContractStatusApproved {
			set["approved_at"] = now
		}

		return s.ContractRepo.Update(ctx, a.ContractID, set)
	})
	if err != nil {
		return nil, err
	}

	result, err := s.result(ctx, a.ContractID)
	if err != nil {
		return nil, err
	}
	s.dispatch(event.ActionApprove, result, actorID, oldStatus, comment)
	return result, nil
}

// Reject is the hard rejection: it requires the dedicated reject permission,
// closes the gate and terminates the review cycle.
func (s *WorkflowServiceImpl) Reject(ctx context.Context, approvalID, orgID, actorID string, permissions []string, comment string) (*WorkflowResult, error) {
	a, err := s.loadApproval(ctx, approvalID, orgID)
	if err != nil {
		return nil, err
	}

	if !permission.Has(permissions, permission.CodeReject) {
		return nil, apperrors.Forbidden("You do not have permission to REJECT contracts. Please request changes instead.")
	}
	if a.Status != models.ApprovalStatusPending {
		return nil, apperrors.Forbidden("This approval has already been processed.")
	}
	if comment == "" {
		return nil, apperrors.Validation("A comment is required when rejecting a contract.")
	}

	return s.closeGate(ctx, a, actorID, comment, models.ContractStatusRejected, event.ActionReject)
}

// RequestRevision is the soft rejection: same permission as approving the
// gate, marks the gate rejected with a revision marker and parks the contract
// in REVISION_REQUESTED so the author can resubmit.
func (s *WorkflowServiceImpl) RequestRevision(ctx context.Context, approvalID, orgID, actorID string, permissions []string, comment string) (*WorkflowResult, error) {
	a, err := s.loadApproval(ctx, approvalID, orgID)
	if err != nil {
		return nil, err
	}

	if !permission.Has(permissions, permission.ActCodeFor(a.Type)) {
		return nil, apperrors.Forbidden(fmt.Sprintf("You do not have permission to act on %s approvals.", a.Type))
	}
	if a.Status != models.ApprovalStatusPending {
		return nil, apperrors.Forbidden("This approval has already been processed.")
	}
	if comment == "" {
		return nil, apperrors.Validation("A comment is required when requesting changes.")
	}

	return s.closeGate(ctx, a, actorID, RevisionCommentPrefix+comment, models.ContractStatusRevisionRequested, event.ActionRequestRevision)
}

// closeGate finalizes a gate as rejected and moves the contract to the
// cycle-terminal status for the action (REJECTED or REVISION_REQUESTED).
func (s *WorkflowServiceImpl) closeGate(ctx context.Context, a *models.Approval, actorID, comment string, contractStatus models.ContractStatus, action string) (*WorkflowResult, error) {
	actorOID, err := primitive.ObjectIDFromHex(actorID)
	if err != nil {
		return nil, apperrors.AccessDenied("Invalid actor.")
	}

	var oldStatus models.ContractStatus
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.ContractRepo.Touch(ctx, a.ContractID)
		if err != nil {
			return err
		}
		if c == nil {
			return apperrors.NotFound("Contract not found.")
		}
		oldStatus = c.Status

		if _, err := s.reloadPending(ctx, a.ID); err != nil {
			return err
		}

		now := time.Now()
		if err := s.ApprovalRepo.Update(ctx, a.ID, bson.M{"$set": bson.M{
			"status":   models.ApprovalStatusRejected,
			"actor_id": actorOID,
			"acted_at": now,
			"comment":  comment,
		}}); err != nil {
			return err
		}

		return s.ContractRepo.Update(ctx, a.ContractID, bson.M{"status": contractStatus})
	})
	if err != nil {
		return nil, err
	}

	result, err := s.result(ctx, a.ContractID)
	if err != nil {
		return nil, err
	}
	s.dispatch(action, result, actorID, oldStatus, comment)
	return result, nil
}

// Cancel withdraws a contract from its current cycle. Terminal contracts
// cannot be cancelled.
func (s *WorkflowServiceImpl) Cancel(ctx context.Context, contractID, orgID, actorID, reason string) (*WorkflowResult, error) {
	c, _, err := s.loadContract(ctx, contractID, orgID)
	if err != nil {
		return nil, err
	}

	if c.Status.IsTerminal() {
		return nil, apperrors.Forbidden(fmt.Sprintf("A contract in status %s cannot be cancelled.", c.Status))
	}

	oldStatus := c.Status
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ContractRepo.Touch(ctx, c.ID); err != nil {
			return err
		}
		return s.ContractRepo.Update(ctx, c.ID, bson.M{"status": models.ContractStatusCancelled})
	})
	if err != nil {
		return nil, err
	}

	result, err := s.result(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	s.dispatch(event.ActionCancel, result, actorID, oldStatus, reason)
	return result, nil
}

// SendToCounterparty moves a fully approved contract out for signature.
func (s *WorkflowServiceImpl) SendToCounterparty(ctx context.Context, contractID, orgID, actorID string) (*WorkflowResult, error) {
	c, _, err := s.loadContract(ctx, contractID, orgID)
	if err != nil {
		return nil, err
	}

	if c.Status != models.ContractStatusApproved {
		return nil, apperrors.Forbidden("Only an approved contract can be sent to the counterparty.")
	}

	oldStatus := c.Status
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ContractRepo.Touch(ctx, c.ID); err != nil {
			return err
		}
		return s.ContractRepo.Update(ctx, c.ID, bson.M{
			"status":  models.ContractStatusSentToCounterparty,
			"sent_at": time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	result, err := s.result(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	s.dispatch(event.ActionSend, result, actorID, oldStatus, "")
	return result, nil
}

// ConfirmSignature activates the contract once the signed document reference
// is attached.
func (s *WorkflowServiceImpl) ConfirmSignature(ctx context.Context, contractID, orgID, actorID, documentID string) (*WorkflowResult, error) {
	c, _, err := s.loadContract(ctx, contractID, orgID)
	if err != nil {
		return nil, err
	}

	if c.Status != models.ContractStatusSentToCounterparty {
		return nil, apperrors.Forbidden("A signature can only be confirmed for a contract that was sent to the counterparty.")
	}
	if documentID == "" {
		return nil, apperrors.Validation("A signed document reference is required.")
	}

	oldStatus := c.Status
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ContractRepo.Touch(ctx, c.ID); err != nil {
			return err
		}
		return s.ContractRepo.Update(ctx, c.ID, bson.M{
			"status":             models.ContractStatusActive,
			"signed_at":          time.Now(),
			"signed_document_id": documentID,
		})
	})
	if err != nil {
		return nil, err
	}

	result, err := s.result(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	s.dispatch(event.ActionConfirmSignature, result, actorID, oldStatus, "")
	return result, nil
}
