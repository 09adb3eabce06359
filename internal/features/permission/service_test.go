package permission

import (
	"testing"

	"go-clm/internal/common/models"
)

func TestHas(t *testing.T) {
	perms := []string{CodeApproveLegal, CodeEscalate}

	if !Has(perms, CodeApproveLegal) {
		t.Error("expected legal act permission")
	}
	if Has(perms, CodeApproveFinance) {
		t.Error("unexpected finance act permission")
	}
	if Has(perms, CodeReject) {
		t.Error("unexpected reject permission")
	}
	if Has(nil, CodeApproveLegal) {
		t.Error("empty permission set granted access")
	}
}

func TestActCodeFor(t *testing.T) {
	if got := ActCodeFor(models.ApprovalTypeLegal); got != CodeApproveLegal {
		t.Errorf("legal act code = %q", got)
	}
	if got := ActCodeFor(models.ApprovalTypeFinance); got != CodeApproveFinance {
		t.Errorf("finance act code = %q", got)
	}
}
