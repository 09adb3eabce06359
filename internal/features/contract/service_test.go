package contract

import (
	"context"
	"testing"

	"go-clm/internal/common/apperrors"
	"go-clm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memContractRepo struct {
	contracts map[primitive.ObjectID]*models.Contract
}

func newMemContractRepo() *memContractRepo {
	return &memContractRepo{contracts: make(map[primitive.ObjectID]*models.Contract)}
}

func (r *memContractRepo) Create(ctx context.Context, c *models.Contract) error {
	cp := *c
	r.contracts[c.ID] = &cp
	return nil
}

func (r *memContractRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contract, error) {
	c, ok := r.contracts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memContractRepo) List(ctx context.Context, orgID primitive.ObjectID, status models.ContractStatus, page, limit int64) ([]models.Contract, int64, error) {
	var out []models.Contract
	for _, c := range r.contracts {
		if c.OrgID == orgID && (status == "" || c.Status == status) {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memContractRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return nil
}

func (r *memContractRepo) Touch(ctx context.Context, id primitive.ObjectID) (*models.Contract, error) {
	c, ok := r.contracts[id]
	if !ok {
		return nil, nil
	}
	c.TxnSeq++
	cp := *c
	return &cp, nil
}

type memGateFinder struct {
	gates []models.Approval
}

func (f *memGateFinder) FindLiveByContract(ctx context.Context, contractID primitive.ObjectID) ([]models.Approval, error) {
	return f.gates, nil
}

func TestCreateDraft(t *testing.T) {
	repo := newMemContractRepo()
	svc := NewContractService(repo, &memGateFinder{})

	orgID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	c, err := svc.CreateDraft(context.Background(), orgID, actorID, "Supply Agreement", "Acme Corp")
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != models.ContractStatusDraft {
		t.Errorf("status = %s, want %s", c.Status, models.ContractStatusDraft)
	}
	if c.OrgID != orgID || c.CreatedByUserID != actorID {
		t.Error("ownership fields not set")
	}
}

func TestCreateDraftRequiresTitle(t *testing.T) {
	svc := NewContractService(newMemContractRepo(), &memGateFinder{})

	_, err := svc.CreateDraft(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), "", "Acme Corp")
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("error kind = %v, want validation (err: %v)", apperrors.KindOf(err), err)
	}
}

func TestGetEnforcesOrgBoundary(t *testing.T) {
	repo := newMemContractRepo()
	svc := NewContractService(repo, &memGateFinder{})

	orgID := primitive.NewObjectID()
	c, err := svc.CreateDraft(context.Background(), orgID, primitive.NewObjectID(), "NDA", "Globex")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(context.Background(), c.ID, orgID); err != nil {
		t.Fatalf("same-org get failed: %v", err)
	}

	_, err = svc.Get(context.Background(), c.ID, primitive.NewObjectID())
	if apperrors.KindOf(err) != apperrors.KindAccessDenied {
		t.Fatalf("error kind = %v, want access denied", apperrors.KindOf(err))
	}
}

func TestGetMissingContract(t *testing.T) {
	svc := NewContractService(newMemContractRepo(), &memGateFinder{})

	_, err := svc.Get(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("error kind = %v, want not found", apperrors.KindOf(err))
	}
}
