package approval

import (
	"context"
	"sync"
	"time"

	"go-clm/internal/common/models"
	"go-clm/internal/features/event"
	"go-clm/internal/features/featureflag"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeContractRepo struct {
	mu        sync.Mutex
	contracts map[primitive.ObjectID]*models.Contract
	touches   int
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{contracts: make(map[primitive.ObjectID]*models.Contract)}
}

func (r *fakeContractRepo) put(c *models.Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.contracts[c.ID] = &cp
}

func (r *fakeContractRepo) Create(ctx context.Context, c *models.Contract) error {
	r.put(c)
	return nil
}

func (r *fakeContractRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContractRepo) List(ctx context.Context, orgID primitive.ObjectID, status models.ContractStatus, page, limit int64) ([]models.Contract, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Contract
	for _, c := range r.contracts {
		if c.OrgID != orgID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeContractRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil
	}
	for k, v := range set {
		switch k {
		case "status":
			c.Status = v.(models.ContractStatus)
		case "submitted_at":
			c.SubmittedAt = asTimePtr(v)
		case "approved_at":
			c.ApprovedAt = asTimePtr(v)
		case "sent_at":
			c.SentAt = asTimePtr(v)
		case "signed_at":
			c.SignedAt = asTimePtr(v)
		case "signed_document_id":
			c.SignedDocumentID = v.(string)
		}
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (r *fakeContractRepo) Touch(ctx context.Context, id primitive.ObjectID) (*models.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, nil
	}
	c.TxnSeq++
	r.touches++
	cp := *c
	return &cp, nil
}

func asTimePtr(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	default:
		return nil
	}
}

type fakeApprovalRepo struct {
	mu        sync.Mutex
	approvals map[primitive.ObjectID]*models.Approval
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{approvals: make(map[primitive.ObjectID]*models.Approval)}
}

func (r *fakeApprovalRepo) put(a *models.Approval) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.approvals[a.ID] = &cp
}

func (r *fakeApprovalRepo) Create(ctx context.Context, a *models.Approval) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	r.put(a)
	return nil
}

func (r *fakeApprovalRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeApprovalRepo) FindLiveByContract(ctx context.Context, contractID primitive.ObjectID) ([]models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Approval
	for _, a := range r.approvals {
		if a.ContractID == contractID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeApprovalRepo) FindLiveByContractAndType(ctx context.Context, contractID primitive.ObjectID, approvalType models.ApprovalType) (*models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.approvals {
		if a.ContractID == contractID && a.Type == approvalType {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeApprovalRepo) DeleteByContractAndTypes(ctx context.Context, contractID primitive.ObjectID, types []models.ApprovalType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.approvals {
		if a.ContractID != contractID {
			continue
		}
		for _, t := range types {
			if a.Type == t {
				delete(r.approvals, id)
				break
			}
		}
	}
	return nil
}

func (r *fakeApprovalRepo) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok {
		return nil
	}
	if set, ok := update["$set"].(bson.M); ok {
		for k, v := range set {
			switch k {
			case "status":
				a.Status = v.(models.ApprovalStatus)
			case "actor_id":
				a.ActorID = v.(primitive.ObjectID)
			case "acted_at":
				a.ActedAt = asTimePtr(v)
			case "comment":
				a.Comment = v.(string)
			case "escalated_by":
				a.EscalatedBy = v.(primitive.ObjectID)
			case "escalated_to":
				a.EscalatedTo = v.(primitive.ObjectID)
			case "escalated_at":
				a.EscalatedAt = asTimePtr(v)
			case "reminder_sent_at":
				a.ReminderSentAt = asTimePtr(v)
			}
		}
	}
	if unset, ok := update["$unset"].(bson.M); ok {
		for k := range unset {
			switch k {
			case "escalated_by":
				a.EscalatedBy = primitive.NilObjectID
			case "escalated_to":
				a.EscalatedTo = primitive.NilObjectID
			case "escalated_at":
				a.EscalatedAt = nil
			}
		}
	}
	return nil
}

func (r *fakeApprovalRepo) FindOverduePending(ctx context.Context, now time.Time) ([]models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Approval
	for _, a := range r.approvals {
		if a.Status == models.ApprovalStatusPending && a.DueDate != nil && a.DueDate.Before(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeApprovalRepo) EnsureIndexes(ctx context.Context) error { return nil }

type fakeTxRunner struct{}

func (fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// racingTxRunner runs before once ahead of the transaction body. It stands in
// for a competing transition that commits between the caller's precondition
// check and its own transaction, the interleaving the driver produces when a
// write conflict makes it retry the body.
type racingTxRunner struct {
	before func()
	fired  bool
}

func (r *racingTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.fired && r.before != nil {
		r.fired = true
		r.before()
	}
	return fn(ctx)
}

type fakeFlagService struct {
	financeEnabled bool
}

func (f *fakeFlagService) IsEnabled(ctx context.Context, code string, orgID primitive.ObjectID) (bool, error) {
	return f.financeEnabled, nil
}

func (f *fakeFlagService) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]featureflag.FeatureFlag, error) {
	return nil, nil
}

func (f *fakeFlagService) SetFlag(ctx context.Context, orgID primitive.ObjectID, code string, enabled bool) error {
	f.financeEnabled = enabled
	return nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []event.TransitionEvent
}

func (d *fakeDispatcher) Dispatch(ev event.TransitionEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *fakeDispatcher) last() *event.TransitionEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) == 0 {
		return nil
	}
	ev := d.events[len(d.events)-1]
	return &ev
}
