package cron_feature

import (
	"context"
	"fmt"
	"time"

	"go-clm/internal/features/approval"
	"go-clm/internal/features/contract"
	"go-clm/internal/features/notification"
	"go-clm/internal/features/organization"
	"go-clm/internal/features/sync"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// reminderInterval is the minimum gap between repeat reminders for the same
// overdue gate.
const reminderInterval = 24 * time.Hour

// CronService runs the background sweeps: hourly overdue-review reminders and
// the nightly contract-register sync.
type CronService interface {
	InitializeScheduler(ctx context.Context) error
	StopScheduler() error
	RunReminderSweep(ctx context.Context) (int, error)
	RunNightlySync(ctx context.Context) error
}

type CronServiceImpl struct {
	scheduler *cron.Cron

	ApprovalRepo approval.ApprovalRepository
	ContractRepo contract.ContractRepository
	OrgRepo      organization.OrganizationRepository
	Notification notification.NotificationService
	SyncService  sync.SyncService
	Logger       *zap.Logger
}

func NewCronService(
	approvalRepo approval.ApprovalRepository,
	contractRepo contract.ContractRepository,
	orgRepo organization.OrganizationRepository,
	notificationService notification.NotificationService,
	syncService sync.SyncService,
	logger *zap.Logger,
) CronService {
	return &CronServiceImpl{
		ApprovalRepo: approvalRepo,
		ContractRepo: contractRepo,
		OrgRepo:      orgRepo,
		Notification: notificationService,
		SyncService:  syncService,
		Logger:       logger,
	}
}

func (s *CronServiceImpl) InitializeScheduler(ctx context.Context) error {
	s.scheduler = cron.New()

	if _, err := s.scheduler.AddFunc("0 * * * *", func() {
		if _, err := s.RunReminderSweep(context.Background()); err != nil {
			s.Logger.Error("reminder sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}

	if _, err := s.scheduler.AddFunc("30 2 * * *", func() {
		if err := s.RunNightlySync(context.Background()); err != nil {
			s.Logger.Error("nightly sync failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule nightly sync: %w", err)
	}

	s.scheduler.Start()
	s.Logger.Info("cron scheduler started")
	return nil
}

func (s *CronServiceImpl) StopScheduler() error {
	if s.scheduler != nil {
		ctx := s.scheduler.Stop()
		<-ctx.Done()
	}
	return nil
}

// RunReminderSweep notifies contract authors about pending gates past their
// due date. Each gate is reminded at most once per reminderInterval.
func (s *CronServiceImpl) RunReminderSweep(ctx context.Context) (int, error) {
	now := time.Now()
	gates, err := s.ApprovalRepo.FindOverduePending(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range gates {
		gate := &gates[i]
		if gate.ReminderSentAt != nil && now.Sub(*gate.ReminderSentAt) < reminderInterval {
			continue
		}

		c, err := s.ContractRepo.FindByID(ctx, gate.ContractID)
		if err != nil || c == nil {
			continue
		}
		if c.Status.IsTerminal() {
			continue
		}

		title := fmt.Sprintf("%s review overdue", gate.Type)
		message := fmt.Sprintf("The %s review for %q was due on %s and is still pending.",
			gate.Type, c.Title, gate.DueDate.Format("2006-01-02"))
		link := fmt.Sprintf("/contracts/%s", c.ID.Hex())

		if err := s.Notification.CreateNotification(ctx, c.CreatedByUserID, title, message,
			notification.NotificationTypeReminder, link); err != nil {
			s.Logger.Warn("failed to send overdue reminder",
				zap.String("contractId", c.ID.Hex()),
				zap.Error(err))
			continue
		}

		if gate.IsEscalated() {
			_ = s.Notification.CreateNotification(ctx, gate.EscalatedTo, title, message,
				notification.NotificationTypeReminder, link)
		}

		if err := s.ApprovalRepo.Update(ctx, gate.ID, bson.M{
			"$set": bson.M{"reminder_sent_at": now},
		}); err != nil {
			s.Logger.Warn("failed to mark reminder sent",
				zap.String("approvalId", gate.ID.Hex()),
				zap.Error(err))
		}
		sent++
	}

	if sent > 0 {
		s.Logger.Info("overdue review reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}

// RunNightlySync pushes every organization's contract register to the
// reporting database.
func (s *CronServiceImpl) RunNightlySync(ctx context.Context) error {
	orgIDs, err := s.OrgRepo.ListIDs(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for _, orgID := range orgIDs {
		if _, err := s.SyncService.RunSync(ctx, orgID); err != nil {
			s.Logger.Error("register sync failed for organization",
				zap.String("orgId", orgID.Hex()),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}
