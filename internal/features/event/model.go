package event

import (
	"go-clm/internal/common/models"
)

const (
	ActionSubmit           = "submit"
	ActionApprove          = "approve"
	ActionReject           = "reject"
	ActionRequestRevision  = "request_revision"
	ActionEscalate         = "escalate"
	ActionReturn           = "return_to_originator"
	ActionCancel           = "cancel"
	ActionSend             = "send_to_counterparty"
	ActionConfirmSignature = "confirm_signature"
)

// TransitionEvent describes one committed workflow transition. It is pushed
// onto the dispatcher's channel after the transaction commits; nothing done
// with it can affect the transition itself.
type TransitionEvent struct {
	Action    string
	Contract  models.Contract
	Approvals []models.Approval
	ActorID   string
	OldStatus models.ContractStatus
	NewStatus models.ContractStatus
	Comment   string
}
