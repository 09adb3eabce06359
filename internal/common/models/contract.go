package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContractStatus string

const (
	ContractStatusDraft                   ContractStatus = "DRAFT"
	ContractStatusSentToLegal             ContractStatus = "SENT_TO_LEGAL"
	ContractStatusSentToFinance           ContractStatus = "SENT_TO_FINANCE"
	ContractStatusLegalReviewInProgress   ContractStatus = "LEGAL_REVIEW_IN_PROGRESS"
	ContractStatusFinanceReviewInProgress ContractStatus = "FINANCE_REVIEW_IN_PROGRESS"
	ContractStatusInReview                ContractStatus = "IN_REVIEW"
	ContractStatusLegalApproved           ContractStatus = "LEGAL_APPROVED"
	ContractStatusFinanceReviewed         ContractStatus = "FINANCE_REVIEWED"
	ContractStatusPendingLegalHead        ContractStatus = "PENDING_LEGAL_HEAD"
	ContractStatusApproved                ContractStatus = "APPROVED"
	ContractStatusRejected                ContractStatus = "REJECTED"
	ContractStatusRevisionRequested       ContractStatus = "REVISION_REQUESTED"
	ContractStatusSentToCounterparty      ContractStatus = "SENT_TO_COUNTERPARTY"
	ContractStatusActive                  ContractStatus = "ACTIVE"
	ContractStatusCancelled               ContractStatus = "CANCELLED"
	ContractStatusExpired                 ContractStatus = "EXPIRED"
	ContractStatusTerminated              ContractStatus = "TERMINATED"
	ContractStatusExecuted                ContractStatus = "EXECUTED"
)

// IsTerminal reports whether no further workflow action is possible.
func (s ContractStatus) IsTerminal() bool {
	switch s {
	case ContractStatusActive, ContractStatusCancelled, ContractStatusExpired,
		ContractStatusTerminated, ContractStatusExecuted:
		return true
	}
	return false
}

type Contract struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID            primitive.ObjectID `bson:"org_id" json:"org_id"`
	Title            string             `bson:"title" json:"title"`
	CounterpartyName string             `bson:"counterparty_name,omitempty" json:"counterparty_name,omitempty"`
	Status           ContractStatus     `bson:"status" json:"status"`
	CreatedByUserID  primitive.ObjectID `bson:"created_by_user_id" json:"created_by_user_id"`
	SignedDocumentID string             `bson:"signed_document_id,omitempty" json:"signed_document_id,omitempty"`
	// TxnSeq is bumped as the first write of every workflow transaction so that
	// two concurrent transitions on the same contract always write-conflict.
	TxnSeq      int64      `bson:"txn_seq" json:"-"`
	SubmittedAt *time.Time `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	SentAt      *time.Time `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	SignedAt    *time.Time `bson:"signed_at,omitempty" json:"signed_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

type ApprovalType string

const (
	ApprovalTypeLegal   ApprovalType = "LEGAL"
	ApprovalTypeFinance ApprovalType = "FINANCE"
)

type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "PENDING"
	ApprovalStatusApproved  ApprovalStatus = "APPROVED"
	ApprovalStatusRejected  ApprovalStatus = "REJECTED"
	ApprovalStatusEscalated ApprovalStatus = "ESCALATED"
)

// Approval is a single review gate on a contract. At most one live approval
// exists per (contract, type); resubmission replaces the live set rather than
// reusing rows from earlier cycles.
type Approval struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ContractID primitive.ObjectID `bson:"contract_id" json:"contract_id"`
	OrgID      primitive.ObjectID `bson:"org_id" json:"org_id"`
	Type       ApprovalType       `bson:"type" json:"type"`
	Status     ApprovalStatus     `bson:"status" json:"status"`
	ActorID    primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	ActedAt    *time.Time         `bson:"acted_at,omitempty" json:"acted_at,omitempty"`
	Comment    string             `bson:"comment,omitempty" json:"comment,omitempty"`
	DueDate    *time.Time         `bson:"due_date,omitempty" json:"due_date,omitempty"`

	// Escalation is a property of a still-pending approval, not a separate
	// record. These fields are set while escalated and cleared on return.
	EscalatedBy primitive.ObjectID `bson:"escalated_by,omitempty" json:"escalated_by,omitempty"`
	EscalatedTo primitive.ObjectID `bson:"escalated_to,omitempty" json:"escalated_to,omitempty"`
	EscalatedAt *time.Time         `bson:"escalated_at,omitempty" json:"escalated_at,omitempty"`

	ReminderSentAt *time.Time `bson:"reminder_sent_at,omitempty" json:"reminder_sent_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsEscalated reports whether the approval is currently retargeted to a
// senior reviewer.
func (a *Approval) IsEscalated() bool {
	return a.EscalatedAt != nil
}
