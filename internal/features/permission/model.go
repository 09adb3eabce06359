package permission

import "go-clm/internal/common/models"

// Permission codes checked by the workflow engine. Acting on a gate requires
// the code scoped to that gate's type; rejecting outright and escalating are
// gated separately.
const (
	CodeApproveLegal   = "approval:legal:act"
	CodeApproveFinance = "approval:finance:act"
	CodeReject         = "approval:reject"
	CodeEscalate       = "contract:escalate"
)

// ActCodeFor returns the permission code required to act on an approval of
// the given type.
func ActCodeFor(approvalType models.ApprovalType) string {
	switch approvalType {
	case models.ApprovalTypeFinance:
		return CodeApproveFinance
	default:
		return CodeApproveLegal
	}
}
