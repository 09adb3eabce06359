package sync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-clm/internal/common/apperrors"
	"go-clm/internal/common/models"
	"go-clm/internal/config"
	"go-clm/internal/features/approval"
	"go-clm/internal/features/audit"
	"go-clm/internal/features/contract"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const createRegisterTable = `
CREATE TABLE IF NOT EXISTS contract_register (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	title TEXT NOT NULL,
	counterparty TEXT,
	status TEXT NOT NULL,
	legal_outcome TEXT,
	finance_outcome TEXT,
	submitted_at TIMESTAMPTZ,
	approved_at TIMESTAMPTZ,
	signed_at TIMESTAMPTZ,
	synced_at TIMESTAMPTZ NOT NULL
)`

const upsertRegisterRow = `
INSERT INTO contract_register
	(id, org_id, title, counterparty, status, legal_outcome, finance_outcome, submitted_at, approved_at, signed_at, synced_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	title = $3,
	counterparty = $4,
	status = $5,
	legal_outcome = $6,
	finance_outcome = $7,
	submitted_at = $8,
	approved_at = $9,
	signed_at = $10,
	synced_at = $11`

// SyncService pushes the organization's contracts into the external reporting
// warehouse as flat register rows.
type SyncService interface {
	RunSync(ctx context.Context, orgID primitive.ObjectID) (*SyncLog, error)
	ListLogs(ctx context.Context, orgID primitive.ObjectID, limit int64) ([]SyncLog, error)
}

type SyncServiceImpl struct {
	ContractRepo contract.ContractRepository
	ApprovalRepo approval.ApprovalRepository
	LogRepo      SyncLogRepository
	AuditService audit.AuditService
	Config       *config.Config
	Logger       *zap.Logger
}

func NewSyncService(
	contractRepo contract.ContractRepository,
	approvalRepo approval.ApprovalRepository,
	logRepo SyncLogRepository,
	auditService audit.AuditService,
	cfg *config.Config,
	logger *zap.Logger,
) SyncService {
	return &SyncServiceImpl{
		ContractRepo: contractRepo,
		ApprovalRepo: approvalRepo,
		LogRepo:      logRepo,
		AuditService: auditService,
		Config:       cfg,
		Logger:       logger,
	}
}

func (s *SyncServiceImpl) RunSync(ctx context.Context, orgID primitive.ObjectID) (*SyncLog, error) {
	if s.Config.ReportingDSN == "" {
		return nil, apperrors.Validation("No reporting database is configured.")
	}

	log := &SyncLog{
		OrgID:     orgID,
		StartedAt: time.Now(),
		Status:    SyncStatusRunning,
	}
	if err := s.LogRepo.Create(ctx, log); err != nil {
		return nil, err
	}

	processed, syncErr := s.syncOrg(ctx, orgID)

	now := time.Now()
	log.FinishedAt = &now
	log.Processed = processed
	if syncErr != nil {
		log.Status = SyncStatusFailed
		log.Error = syncErr.Error()
	} else {
		log.Status = SyncStatusSuccess
	}
	if err := s.LogRepo.Update(ctx, log); err != nil {
		s.Logger.Warn("failed to finalize sync log", zap.Error(err))
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionSync, "contract_register", orgID.Hex(), map[string]models.Change{
		"status":    {New: log.Status},
		"processed": {New: processed},
	})

	if syncErr != nil {
		return log, syncErr
	}
	return log, nil
}

func (s *SyncServiceImpl) syncOrg(ctx context.Context, orgID primitive.ObjectID) (int, error) {
	db, err := sql.Open("postgres", s.Config.ReportingDSN)
	if err != nil {
		return 0, fmt.Errorf("failed to open reporting database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to ping reporting database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createRegisterTable); err != nil {
		return 0, fmt.Errorf("failed to ensure register table: %w", err)
	}

	processed := 0
	page := int64(1)
	limit := int64(500)

	for {
		contracts, _, err := s.ContractRepo.List(ctx, orgID, "", page, limit)
		if err != nil {
			return processed, fmt.Errorf("failed to fetch contracts on page %d: %w", page, err)
		}
		if len(contracts) == 0 {
			break
		}

		for i := range contracts {
			if err := s.upsertRow(ctx, db, &contracts[i]); err != nil {
				s.Logger.Warn("failed to sync contract",
					zap.String("contractId", contracts[i].ID.Hex()),
					zap.Error(err))
				continue
			}
			processed++
		}

		if int64(len(contracts)) < limit {
			break
		}
		page++
	}
	return processed, nil
}

func (s *SyncServiceImpl) upsertRow(ctx context.Context, db *sql.DB, c *models.Contract) error {
	gates, err := s.ApprovalRepo.FindLiveByContract(ctx, c.ID)
	if err != nil {
		return err
	}

	var legalOutcome, financeOutcome string
	for _, g := range gates {
		switch g.Type {
		case models.ApprovalTypeLegal:
			legalOutcome = string(g.Status)
		case models.ApprovalTypeFinance:
			financeOutcome = string(g.Status)
		}
	}

	_, err = db.ExecContext(ctx, upsertRegisterRow,
		c.ID.Hex(),
		c.OrgID.Hex(),
		c.Title,
		c.CounterpartyName,
		string(c.Status),
		legalOutcome,
		financeOutcome,
		c.SubmittedAt,
		c.ApprovedAt,
		c.SignedAt,
		time.Now(),
	)
	return err
}

func (s *SyncServiceImpl) ListLogs(ctx context.Context, orgID primitive.ObjectID, limit int64) ([]SyncLog, error) {
	return s.LogRepo.List(ctx, orgID, limit)
}
