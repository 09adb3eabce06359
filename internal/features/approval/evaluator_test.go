package approval

import (
	"testing"

	"go-clm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func gate(t *testing.T, gateType models.ApprovalType, status models.ApprovalStatus) models.Approval {
	t.Helper()
	return models.Approval{
		ID:     primitive.NewObjectID(),
		Type:   gateType,
		Status: status,
	}
}

func TestEvaluateContractStatus(t *testing.T) {
	tests := []struct {
		name  string
		gates []models.Approval
		want  models.ContractStatus
	}{
		{
			name:  "no gates",
			gates: nil,
			want:  models.ContractStatusInReview,
		},
		{
			name: "single legal pending",
			gates: []models.Approval{
				gate(t, models.ApprovalTypeLegal, models.ApprovalStatusPending),
			},
			want: models.ContractStatusSentToLegal,
		},
		{
			name: "single legal approved",
			gates: []models.Approval{
				gate(t, models.ApprovalTypeLegal, models.ApprovalStatusApproved),
			},
			want: models.ContractStatusApproved,
		},
		{
			name: "legal approved finance pending",
			gates: []models.Approval{
				gate(t, models.ApprovalTypeLegal, models.ApprovalStatusApproved),
				gate(t, models.ApprovalTypeFinance, models.ApprovalStatusPending),
			},
			want: models.ContractStatusFinanceReviewInProgress,
		},
		{
			name: "legal pending dominates finance pending",
			gates: []models.Approval{
				gate(t, models.ApprovalTypeLegal, models.ApprovalStatusPending),
				gate(t, models.ApprovalTypeFinance, models.ApprovalStatusPending),
			},
			want: models.ContractStatusSentToLegal,
		},
		{
			name: "legal pending dominates finance approved",
			gates: []models.Approval{
				gate(t, models.ApprovalTypeLegal, models.ApprovalStatusPending),
				gate(t, models.ApprovalTypeFinance, models.ApprovalStatusApproved),
			},
			want: models.ContractStatusSentToLegal,
		},
		{
			name: "both approved",
			gates: []models.Approval{
				gate(t, models.ApprovalTypeLegal, models.ApprovalStatusApproved),
				gate(t, models.ApprovalTypeFinance, models.ApprovalStatusApproved),
			},
			want: models.ContractStatusApproved,
		},
		{
			name: "one rejected none pending",
			gates: []models.Approval{
				gate(t, models.ApprovalTypeLegal, models.ApprovalStatusApproved),
				gate(t, models.ApprovalTypeFinance, models.ApprovalStatusRejected),
			},
			want: models.ContractStatusInReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateContractStatus(tt.gates, primitive.NilObjectID, "")
			if got != tt.want {
				t.Errorf("EvaluateContractStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluateContractStatusActedGateOverride(t *testing.T) {
	legal := gate(t, models.ApprovalTypeLegal, models.ApprovalStatusPending)
	finance := gate(t, models.ApprovalTypeFinance, models.ApprovalStatusApproved)

	// The stored legal gate still reads PENDING; the caller just approved it.
	got := EvaluateContractStatus([]models.Approval{legal, finance}, legal.ID, models.ApprovalStatusApproved)
	if got != models.ContractStatusApproved {
		t.Errorf("acted gate override: got %s, want %s", got, models.ContractStatusApproved)
	}
}

func TestEvaluateContractStatusDeterministic(t *testing.T) {
	legal := gate(t, models.ApprovalTypeLegal, models.ApprovalStatusApproved)
	finance := gate(t, models.ApprovalTypeFinance, models.ApprovalStatusPending)

	first := EvaluateContractStatus([]models.Approval{legal, finance}, primitive.NilObjectID, "")
	for i := 0; i < 100; i++ {
		if got := EvaluateContractStatus([]models.Approval{legal, finance}, primitive.NilObjectID, ""); got != first {
			t.Fatalf("run %d: got %s, want %s", i, got, first)
		}
	}
}

func TestEvaluateContractStatusOrderIndependent(t *testing.T) {
	legal := gate(t, models.ApprovalTypeLegal, models.ApprovalStatusPending)
	finance := gate(t, models.ApprovalTypeFinance, models.ApprovalStatusApproved)

	forward := EvaluateContractStatus([]models.Approval{legal, finance}, primitive.NilObjectID, "")
	reversed := EvaluateContractStatus([]models.Approval{finance, legal}, primitive.NilObjectID, "")
	if forward != reversed {
		t.Errorf("gate order changed the result: %s vs %s", forward, reversed)
	}
}
