package contract

import (
	"context"
	"time"

	"go-clm/internal/common/apperrors"
	"go-clm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LiveGateFinder exposes the approval store to this feature without a direct
// dependency on it; the adapter is wired in main.
type LiveGateFinder interface {
	FindLiveByContract(ctx context.Context, contractID primitive.ObjectID) ([]models.Approval, error)
}

// ContractWithApprovals is a contract together with its live review gates.
type ContractWithApprovals struct {
	Contract  *models.Contract  `json:"contract"`
	Approvals []models.Approval `json:"approvals"`
}

type ContractService interface {
	CreateDraft(ctx context.Context, orgID, actorID primitive.ObjectID, title, counterparty string) (*models.Contract, error)
	Get(ctx context.Context, id, orgID primitive.ObjectID) (*ContractWithApprovals, error)
	List(ctx context.Context, orgID primitive.ObjectID, status models.ContractStatus, page, limit int64) ([]models.Contract, int64, error)
}

type ContractServiceImpl struct {
	Repo       ContractRepository
	GateFinder LiveGateFinder
}

func NewContractService(repo ContractRepository, gateFinder LiveGateFinder) ContractService {
	return &ContractServiceImpl{
		Repo:       repo,
		GateFinder: gateFinder,
	}
}

func (s *ContractServiceImpl) CreateDraft(ctx context.Context, orgID, actorID primitive.ObjectID, title, counterparty string) (*models.Contract, error) {
	if title == "" {
		return nil, apperrors.Validation("A contract title is required.")
	}

	now := time.Now()
	contract := &models.Contract{
		ID:               primitive.NewObjectID(),
		OrgID:            orgID,
		Title:            title,
		CounterpartyName: counterparty,
		Status:           models.ContractStatusDraft,
		CreatedByUserID:  actorID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.Repo.Create(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *ContractServiceImpl) Get(ctx context.Context, id, orgID primitive.ObjectID) (*ContractWithApprovals, error) {
	contract, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, apperrors.NotFound("Contract not found.")
	}
	if contract.OrgID != orgID {
		return nil, apperrors.AccessDenied("This contract belongs to a different organization.")
	}

	approvals, err := s.GateFinder.FindLiveByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	return &ContractWithApprovals{Contract: contract, Approvals: approvals}, nil
}

func (s *ContractServiceImpl) List(ctx context.Context, orgID primitive.ObjectID, status models.ContractStatus, page, limit int64) ([]models.Contract, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return s.Repo.List(ctx, orgID, status, page, limit)
}
