package approval

import (
	"context"
	"strings"
	"testing"
	"time"

	"go-clm/internal/common/apperrors"
	"go-clm/internal/common/models"
	"go-clm/internal/config"
	"go-clm/internal/features/event"
	"go-clm/internal/features/permission"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type workflowFixture struct {
	svc        *WorkflowServiceImpl
	contracts  *fakeContractRepo
	approvals  *fakeApprovalRepo
	flags      *fakeFlagService
	dispatcher *fakeDispatcher
	orgID      primitive.ObjectID
	actorID    primitive.ObjectID
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	contracts := newFakeContractRepo()
	approvals := newFakeApprovalRepo()
	flags := &fakeFlagService{}
	dispatcher := &fakeDispatcher{}

	svc := &WorkflowServiceImpl{
		ContractRepo: contracts,
		ApprovalRepo: approvals,
		Tx:           fakeTxRunner{},
		Flags:        flags,
		Dispatcher:   dispatcher,
		Config:       &config.Config{ReviewSLAHours: 72},
		Logger:       zap.NewNop(),
	}

	return &workflowFixture{
		svc:        svc,
		contracts:  contracts,
		approvals:  approvals,
		flags:      flags,
		dispatcher: dispatcher,
		orgID:      primitive.NewObjectID(),
		actorID:    primitive.NewObjectID(),
	}
}

func (f *workflowFixture) seedContract(status models.ContractStatus) *models.Contract {
	c := &models.Contract{
		ID:              primitive.NewObjectID(),
		OrgID:           f.orgID,
		Title:           "MSA with Acme",
		Status:          status,
		CreatedByUserID: f.actorID,
		CreatedAt:       time.Now(),
	}
	f.contracts.put(c)
	return c
}

func (f *workflowFixture) seedGate(contractID primitive.ObjectID, gateType models.ApprovalType, status models.ApprovalStatus) *models.Approval {
	a := &models.Approval{
		ID:         primitive.NewObjectID(),
		ContractID: contractID,
		OrgID:      f.orgID,
		Type:       gateType,
		Status:     status,
		CreatedAt:  time.Now(),
	}
	f.approvals.put(a)
	return a
}

func wantKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := apperrors.KindOf(err); got != kind {
		t.Fatalf("error kind = %v, want %v (err: %v)", got, kind, err)
	}
}

func TestSubmitFromDraft(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusDraft)

	result, err := f.svc.Submit(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if result.Contract.Status != models.ContractStatusSentToLegal {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusSentToLegal)
	}
	if result.Contract.SubmittedAt == nil {
		t.Error("submitted_at not stamped")
	}
	if len(result.Approvals) != 1 {
		t.Fatalf("gates = %d, want 1", len(result.Approvals))
	}
	g := result.Approvals[0]
	if g.Type != models.ApprovalTypeLegal || g.Status != models.ApprovalStatusPending {
		t.Errorf("gate = %s/%s, want LEGAL/PENDING", g.Type, g.Status)
	}
	if g.DueDate == nil {
		t.Error("gate due date not set")
	}

	if ev := f.dispatcher.last(); ev == nil || ev.Action != event.ActionSubmit {
		t.Errorf("expected a submit event, got %+v", ev)
	}
}

func TestSubmitWithFinanceWorkflow(t *testing.T) {
	f := newWorkflowFixture(t)
	f.flags.financeEnabled = true
	c := f.seedContract(models.ContractStatusDraft)

	result, err := f.svc.Submit(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Approvals) != 2 {
		t.Fatalf("gates = %d, want 2", len(result.Approvals))
	}
	types := map[models.ApprovalType]bool{}
	for _, g := range result.Approvals {
		types[g.Type] = true
	}
	if !types[models.ApprovalTypeLegal] || !types[models.ApprovalTypeFinance] {
		t.Errorf("gate types = %v, want legal and finance", types)
	}
}

func TestSubmitBlockedFromActive(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusActive)

	_, err := f.svc.Submit(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), nil)
	wantKind(t, err, apperrors.KindForbidden)
}

func TestSubmitWrongOrg(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusDraft)

	_, err := f.svc.Submit(context.Background(), c.ID.Hex(), primitive.NewObjectID().Hex(), f.actorID.Hex(), nil)
	wantKind(t, err, apperrors.KindAccessDenied)
}

func TestApproveSingleGate(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)

	perms := []string{permission.CodeApproveLegal}
	result, err := f.svc.Approve(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms, "looks good")
	if err != nil {
		t.Fatal(err)
	}

	if result.Contract.Status != models.ContractStatusApproved {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusApproved)
	}
	if result.Contract.ApprovedAt == nil {
		t.Error("approved_at not stamped")
	}
	got := result.Approvals[0]
	if got.Status != models.ApprovalStatusApproved {
		t.Errorf("gate status = %s, want APPROVED", got.Status)
	}
	if got.ActorID != f.actorID {
		t.Error("gate actor not recorded")
	}
	if got.Comment != "looks good" {
		t.Errorf("gate comment = %q", got.Comment)
	}
}

func TestApproveLegalWithFinancePending(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	legal := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)
	f.seedGate(c.ID, models.ApprovalTypeFinance, models.ApprovalStatusPending)

	perms := []string{permission.CodeApproveLegal}
	result, err := f.svc.Approve(context.Background(), legal.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.Contract.Status != models.ContractStatusFinanceReviewInProgress {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusFinanceReviewInProgress)
	}
	if result.Contract.ApprovedAt != nil {
		t.Error("approved_at must not be stamped while finance is pending")
	}
}

func TestApproveAlreadyProcessed(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusApproved)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusApproved)

	perms := []string{permission.CodeApproveLegal}
	_, err := f.svc.Approve(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms, "")
	wantKind(t, err, apperrors.KindForbidden)
}

func TestApproveWithoutPermission(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)

	_, err := f.svc.Approve(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), []string{permission.CodeApproveFinance}, "")
	wantKind(t, err, apperrors.KindForbidden)

	// Nothing may have changed.
	stored, _ := f.approvals.FindByID(context.Background(), g.ID)
	if stored.Status != models.ApprovalStatusPending {
		t.Errorf("gate mutated on denied approve: %s", stored.Status)
	}
}

func TestApproveMissingGate(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.Approve(context.Background(), primitive.NewObjectID().Hex(), f.orgID.Hex(), f.actorID.Hex(), []string{permission.CodeApproveLegal}, "")
	wantKind(t, err, apperrors.KindNotFound)
}

func TestRejectRequiresComment(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)

	perms := []string{permission.CodeReject}
	_, err := f.svc.Reject(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms, "")
	wantKind(t, err, apperrors.KindValidation)
}

func TestRejectRequiresRejectPermission(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)

	// Acting permission alone is not enough to reject outright.
	_, err := f.svc.Reject(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), []string{permission.CodeApproveLegal}, "not acceptable")
	wantKind(t, err, apperrors.KindForbidden)
}

func TestReject(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)

	perms := []string{permission.CodeReject}
	result, err := f.svc.Reject(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms, "indemnity clause unacceptable")
	if err != nil {
		t.Fatal(err)
	}

	if result.Contract.Status != models.ContractStatusRejected {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusRejected)
	}
	if result.Approvals[0].Status != models.ApprovalStatusRejected {
		t.Errorf("gate status = %s, want REJECTED", result.Approvals[0].Status)
	}
}

func TestRequestRevision(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)

	perms := []string{permission.CodeApproveLegal}
	result, err := f.svc.RequestRevision(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms, "please fix section 4")
	if err != nil {
		t.Fatal(err)
	}

	if result.Contract.Status != models.ContractStatusRevisionRequested {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusRevisionRequested)
	}
	got := result.Approvals[0]
	if got.Status != models.ApprovalStatusRejected {
		t.Errorf("gate status = %s, want REJECTED", got.Status)
	}
	if !strings.HasPrefix(got.Comment, RevisionCommentPrefix) {
		t.Errorf("comment %q missing revision marker", got.Comment)
	}
}

func TestResubmissionResetsGates(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)

	perms := []string{permission.CodeApproveLegal}
	if _, err := f.svc.RequestRevision(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms, "fix it"); err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.Submit(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Approvals) != 1 {
		t.Fatalf("gates after resubmit = %d, want 1", len(result.Approvals))
	}
	fresh := result.Approvals[0]
	if fresh.ID == g.ID {
		t.Error("resubmission reused the stale gate")
	}
	if fresh.Status != models.ApprovalStatusPending {
		t.Errorf("fresh gate status = %s, want PENDING", fresh.Status)
	}
	if fresh.Comment != "" || fresh.ActedAt != nil {
		t.Error("fresh gate carries stale outcome data")
	}
}

func TestResubmitAfterReject(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusRejected)
	f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusRejected)

	result, err := f.svc.Submit(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Contract.Status != models.ContractStatusSentToLegal {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusSentToLegal)
	}
}

func TestCancel(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)

	result, err := f.svc.Cancel(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), "deal fell through")
	if err != nil {
		t.Fatal(err)
	}
	if result.Contract.Status != models.ContractStatusCancelled {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusCancelled)
	}
}

func TestCancelBlockedInTerminalStates(t *testing.T) {
	terminal := []models.ContractStatus{
		models.ContractStatusActive,
		models.ContractStatusCancelled,
		models.ContractStatusExpired,
		models.ContractStatusTerminated,
		models.ContractStatusExecuted,
	}

	for _, status := range terminal {
		t.Run(string(status), func(t *testing.T) {
			f := newWorkflowFixture(t)
			c := f.seedContract(status)

			_, err := f.svc.Cancel(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), "")
			wantKind(t, err, apperrors.KindForbidden)
		})
	}
}

func TestSendToCounterparty(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusApproved)

	result, err := f.svc.SendToCounterparty(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if result.Contract.Status != models.ContractStatusSentToCounterparty {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusSentToCounterparty)
	}
	if result.Contract.SentAt == nil {
		t.Error("sent_at not stamped")
	}
}

func TestSendRequiresApprovedStatus(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)

	_, err := f.svc.SendToCounterparty(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex())
	wantKind(t, err, apperrors.KindForbidden)
}

func TestConfirmSignature(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToCounterparty)

	result, err := f.svc.ConfirmSignature(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), "doc-42")
	if err != nil {
		t.Fatal(err)
	}
	if result.Contract.Status != models.ContractStatusActive {
		t.Errorf("status = %s, want %s", result.Contract.Status, models.ContractStatusActive)
	}
	if result.Contract.SignedAt == nil {
		t.Error("signed_at not stamped")
	}
	if result.Contract.SignedDocumentID != "doc-42" {
		t.Errorf("signed_document_id = %q", result.Contract.SignedDocumentID)
	}
}

func TestConfirmSignatureRequiresDocument(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToCounterparty)

	_, err := f.svc.ConfirmSignature(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), "")
	wantKind(t, err, apperrors.KindValidation)
}

func TestTransitionsTouchContract(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusDraft)

	if _, err := f.svc.Submit(context.Background(), c.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), nil); err != nil {
		t.Fatal(err)
	}
	if f.contracts.touches == 0 {
		t.Error("transition committed without bumping the contract sequence")
	}
}

func TestRejectAfterConcurrentApprove(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)

	winner := primitive.NewObjectID()
	now := time.Now()
	f.svc.Tx = &racingTxRunner{before: func() {
		_ = f.approvals.Update(context.Background(), g.ID, bson.M{"$set": bson.M{
			"status":   models.ApprovalStatusApproved,
			"actor_id": winner,
			"acted_at": now,
		}})
		_ = f.contracts.Update(context.Background(), c.ID, bson.M{
			"status":      models.ContractStatusApproved,
			"approved_at": now,
		})
	}}

	perms := []string{permission.CodeReject}
	_, err := f.svc.Reject(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms, "unacceptable")
	wantKind(t, err, apperrors.KindForbidden)

	gate, _ := f.approvals.FindByID(context.Background(), g.ID)
	if gate.Status != models.ApprovalStatusApproved || gate.ActorID != winner {
		t.Errorf("losing reject overwrote the gate: %s by %s", gate.Status, gate.ActorID.Hex())
	}
	contract, _ := f.contracts.FindByID(context.Background(), c.ID)
	if contract.Status != models.ContractStatusApproved {
		t.Errorf("losing reject moved the contract to %s", contract.Status)
	}
}

func TestApproveAfterConcurrentReject(t *testing.T) {
	f := newWorkflowFixture(t)
	c := f.seedContract(models.ContractStatusSentToLegal)
	g := f.seedGate(c.ID, models.ApprovalTypeLegal, models.ApprovalStatusPending)

	f.svc.Tx = &racingTxRunner{before: func() {
		_ = f.approvals.Update(context.Background(), g.ID, bson.M{"$set": bson.M{
			"status": models.ApprovalStatusRejected,
		}})
		_ = f.contracts.Update(context.Background(), c.ID, bson.M{
			"status": models.ContractStatusRejected,
		})
	}}

	perms := []string{permission.CodeApproveLegal}
	_, err := f.svc.Approve(context.Background(), g.ID.Hex(), f.orgID.Hex(), f.actorID.Hex(), perms, "looks fine")
	wantKind(t, err, apperrors.KindForbidden)

	gate, _ := f.approvals.FindByID(context.Background(), g.ID)
	if gate.Status != models.ApprovalStatusRejected {
		t.Errorf("losing approve overwrote the gate: %s", gate.Status)
	}
	contract, _ := f.contracts.FindByID(context.Background(), c.ID)
	if contract.Status != models.ContractStatusRejected {
		t.Errorf("losing approve moved the contract to %s", contract.Status)
	}
}
