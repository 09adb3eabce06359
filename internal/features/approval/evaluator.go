package approval

import (
	"go-clm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EvaluateContractStatus derives the contract's aggregate status from its
// live gate set. The gate identified by actedID is treated as already holding
// actedStatus, so the result is correct even when the caller's re-read
// returned a pre-update snapshot of that gate.
//
// Priority order: a pending legal gate dominates, then a pending finance
// gate, then full approval; anything else falls back to IN_REVIEW.
func EvaluateContractStatus(gates []models.Approval, actedID primitive.ObjectID, actedStatus models.ApprovalStatus) models.ContractStatus {
	if len(gates) == 0 {
		return models.ContractStatusInReview
	}

	statusOf := func(g models.Approval) models.ApprovalStatus {
		if g.ID == actedID {
			return actedStatus
		}
		return g.Status
	}

	allApproved := true
	var legalPending, financePending bool

	for _, g := range gates {
		st := statusOf(g)
		if st != models.ApprovalStatusApproved {
			allApproved = false
		}
		if st == models.ApprovalStatusPending {
			switch g.Type {
			case models.ApprovalTypeLegal:
				legalPending = true
			case models.ApprovalTypeFinance:
				financePending = true
			}
		}
	}

	switch {
	case legalPending:
		return models.ContractStatusSentToLegal
	case financePending:
		return models.ContractStatusFinanceReviewInProgress
	case allApproved:
		return models.ContractStatusApproved
	default:
		return models.ContractStatusInReview
	}
}
