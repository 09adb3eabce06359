package approval

import (
	"context"
	"testing"
	"time"

	"go-clm/internal/common/apperrors"
	"go-clm/internal/common/models"
	"go-clm/internal/features/event"
	"go-clm/internal/features/permission"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeUserRepo struct {
	legalHead *models.User
}

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error { return nil }

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) FindFirstByRole(ctx context.Context, orgID primitive.ObjectID, role string) (*models.User, error) {
	if role == LegalHeadRole {
		return r.legalHead, nil
	}
	return nil, nil
}

type escalationFixture struct {
	svc        *EscalationServiceImpl
	contracts  *fakeContractRepo
	approvals  *fakeApprovalRepo
	users      *fakeUserRepo
	dispatcher *fakeDispatcher
	orgID      primitive.ObjectID
	actorID    primitive.ObjectID
	headID     primitive.ObjectID
}

func newEscalationFixture(t *testing.T) *escalationFixture {
	t.Helper()
	contracts := newFakeContractRepo()
	approvals := newFakeApprovalRepo()
	dispatcher := &fakeDispatcher{}
	orgID := primitive.NewObjectID()
	headID := primitive.NewObjectID()

	users := &fakeUserRepo{
		legalHead: &models.User{
			ID:     headID,
			OrgID:  orgID,
			Roles:  []string{LegalHeadRole},
			Status: "active",
		},
	}

	svc := &EscalationServiceImpl{
		ContractRepo: contracts,
		ApprovalRepo: approvals,
		UserRepo:     users,
		Tx:           fakeTxRunner{},
		Dispatcher:   dispatcher,
		Logger:       zap.NewNop(),
	}

	return &escalationFixture{
		svc:        svc,
		contracts:  contracts,
		approvals:  approvals,
		users:      users,
		dispatcher: dispatcher,
		orgID:      orgID,
		actorID:    primitive.NewObjectID(),
		headID:     headID,
	}
}

func (f *escalationFixture) seedPendingLegal() (*models.Contract, *models.Approval) {
	c := &models.Contract{
		ID:        primitive.NewObjectID(),
		OrgID:     f.orgID,
		Title:     "NDA with Globex",
		Status:    models.ContractStatusSentToLegal,
		CreatedAt: time.Now(),
	}
	f.contracts.put(c)

	a := &models.Approval{
		ID:         primitive.NewObjectID(),
		ContractID: c.ID,
		OrgID:      f.orgID,
		Type:       models.ApprovalTypeLegal,
		Status:     models.ApprovalStatusPending,
		CreatedAt:  time.Now(),
	}
	f.approvals.put(a)
	return c, a
}

func TestEscalate(t *testing.T) {
	f := newEscalationFixture(t)
	c, g := f.seedPendingLegal()

	perms := []string{permission.CodeEscalate}
	result, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms)
	if err != nil {
		t.Fatal(err)
	}

	if result.Contract.Status != models.ContractStatusPendingLegalHead {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusPendingLegalHead)
	}
	got := result.Approvals[0]
	if got.Status != models.ApprovalStatusPending {
		t.Errorf("gate status = %s, escalation must keep the gate pending", got.Status)
	}
	if got.ActorID != f.headID {
		t.Error("gate actor not retargeted to the legal head")
	}
	if got.EscalatedBy != f.actorID {
		t.Error("escalated_by not recorded")
	}
	if got.EscalatedTo != f.headID {
		t.Error("escalated_to not set to the legal head")
	}
	if got.EscalatedAt == nil {
		t.Error("escalated_at not stamped")
	}
	_ = g

	if ev := f.dispatcher.last(); ev == nil || ev.Action != event.ActionEscalate {
		t.Errorf("expected an escalate event, got %+v", ev)
	}
}

func TestEscalateIdempotent(t *testing.T) {
	f := newEscalationFixture(t)
	c, _ := f.seedPendingLegal()

	perms := []string{permission.CodeEscalate}
	first, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms)
	if err != nil {
		t.Fatal(err)
	}

	second, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms)
	if err != nil {
		t.Fatal(err)
	}

	if second.Contract.Status != models.ContractStatusPendingLegalHead {
		t.Errorf("status = %s after repeat escalate", second.Contract.Status)
	}
	if !first.Approvals[0].EscalatedAt.Equal(*second.Approvals[0].EscalatedAt) {
		t.Error("repeat escalation rewrote the escalation record")
	}
}

func TestReescalateRetargetsNewHead(t *testing.T) {
	f := newEscalationFixture(t)
	c, _ := f.seedPendingLegal()

	perms := []string{permission.CodeEscalate}
	first, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms)
	if err != nil {
		t.Fatal(err)
	}

	// The organization appoints a new legal head while the gate is escalated.
	newHead := primitive.NewObjectID()
	f.users.legalHead = &models.User{
		ID:     newHead,
		OrgID:  f.orgID,
		Roles:  []string{LegalHeadRole},
		Status: "active",
	}

	second, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms)
	if err != nil {
		t.Fatal(err)
	}

	got := second.Approvals[0]
	if got.EscalatedTo != newHead || got.ActorID != newHead {
		t.Error("re-escalation did not retarget the gate to the new legal head")
	}
	if got.EscalatedBy != first.Approvals[0].EscalatedBy {
		t.Error("re-escalation rewrote escalated_by")
	}
	if !first.Approvals[0].EscalatedAt.Equal(*got.EscalatedAt) {
		t.Error("re-escalation rewrote escalated_at")
	}
}

func TestEscalateWithoutPermission(t *testing.T) {
	f := newEscalationFixture(t)
	c, _ := f.seedPendingLegal()

	_, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), nil)
	wantKind(t, err, apperrors.KindForbidden)
}

func TestEscalateNoLegalHead(t *testing.T) {
	f := newEscalationFixture(t)
	f.users.legalHead = nil
	c, _ := f.seedPendingLegal()

	perms := []string{permission.CodeEscalate}
	_, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms)
	wantKind(t, err, apperrors.KindNotFound)
}

func TestEscalateWrongStatus(t *testing.T) {
	f := newEscalationFixture(t)
	c, _ := f.seedPendingLegal()
	_ = f.contracts.Update(context.Background(), c.ID, map[string]interface{}{"status": models.ContractStatusDraft})

	perms := []string{permission.CodeEscalate}
	_, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms)
	wantKind(t, err, apperrors.KindForbidden)
}

func TestReturnToOriginatorRoundTrip(t *testing.T) {
	f := newEscalationFixture(t)
	c, g := f.seedPendingLegal()

	perms := []string{permission.CodeEscalate}
	if _, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms); err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.ReturnToOriginator(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.headID.Hex(), "precedent attached, proceed")
	if err != nil {
		t.Fatal(err)
	}

	if result.Contract.Status != models.ContractStatusSentToLegal {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusSentToLegal)
	}
	got := result.Approvals[0]
	if got.Status != models.ApprovalStatusPending {
		t.Errorf("gate status = %s, want PENDING after return", got.Status)
	}
	if got.IsEscalated() {
		t.Error("escalation fields not cleared on return")
	}
	if got.ActorID != f.actorID {
		t.Error("gate actor not restored to the escalating reviewer")
	}
	if got.Comment != "precedent attached, proceed" {
		t.Errorf("guidance comment = %q", got.Comment)
	}
	_ = g
}

func TestEscalateAfterConcurrentApprove(t *testing.T) {
	f := newEscalationFixture(t)
	c, g := f.seedPendingLegal()

	f.svc.Tx = &racingTxRunner{before: func() {
		_ = f.approvals.Update(context.Background(), g.ID, bson.M{"$set": bson.M{
			"status": models.ApprovalStatusApproved,
		}})
		_ = f.contracts.Update(context.Background(), c.ID, bson.M{
			"status": models.ContractStatusApproved,
		})
	}}

	perms := []string{permission.CodeEscalate}
	_, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms)
	wantKind(t, err, apperrors.KindForbidden)

	gate, _ := f.approvals.FindByID(context.Background(), g.ID)
	if gate.IsEscalated() {
		t.Error("losing escalate marked a resolved gate")
	}
}

func TestReturnRequiresComment(t *testing.T) {
	f := newEscalationFixture(t)
	c, _ := f.seedPendingLegal()

	perms := []string{permission.CodeEscalate}
	if _, err := f.svc.Escalate(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.ReturnToOriginator(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.headID.Hex(), "")
	wantKind(t, err, apperrors.KindValidation)
}

func TestReturnWithoutEscalation(t *testing.T) {
	f := newEscalationFixture(t)
	c, _ := f.seedPendingLegal()

	_, err := f.svc.ReturnToOriginator(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.headID.Hex(), "guidance")
	wantKind(t, err, apperrors.KindForbidden)
}
