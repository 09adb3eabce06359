package event

import (
	"context"
	"fmt"
	"time"

	common_models "go-clm/internal/common/models"
	"go-clm/internal/features/audit"
	"go-clm/internal/features/cache"
	"go-clm/internal/features/email"
	"go-clm/internal/features/notification"
	"go-clm/internal/features/user"
	"go-clm/pkg/utils"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Dispatcher fans a committed transition out to notifications, email, audit
// and cache invalidation. Dispatch never blocks the caller and every handler
// failure is logged and swallowed.
type Dispatcher interface {
	Dispatch(ev TransitionEvent)
}

type DispatcherImpl struct {
	events chan TransitionEvent
	done   chan struct{}

	notificationService notification.NotificationService
	emailService        email.EmailService
	auditService        audit.AuditService
	cacheService        cache.CacheService
	userRepo            user.UserRepository
	logger              *zap.Logger
}

func NewDispatcher(
	lc fx.Lifecycle,
	notificationService notification.NotificationService,
	emailService email.EmailService,
	auditService audit.AuditService,
	cacheService cache.CacheService,
	userRepo user.UserRepository,
	logger *zap.Logger,
) Dispatcher {
	d := &DispatcherImpl{
		events:              make(chan TransitionEvent, 256),
		done:                make(chan struct{}),
		notificationService: notificationService,
		emailService:        emailService,
		auditService:        auditService,
		cacheService:        cacheService,
		userRepo:            userRepo,
		logger:              logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go d.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(d.events)
			select {
			case <-d.done:
			case <-ctx.Done():
			}
			return nil
		},
	})

	return d
}

func (d *DispatcherImpl) Dispatch(ev TransitionEvent) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("transition event channel full, dropping event",
			zap.String("action", ev.Action),
			zap.String("contract_id", ev.Contract.ID.Hex()))
	}
}

func (d *DispatcherImpl) run() {
	for ev := range d.events {
		d.handle(ev)
	}
	close(d.done)
}

func (d *DispatcherImpl) handle(ev TransitionEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling transition event",
				zap.String("action", ev.Action),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Re-attach the actor so the audit entry records who acted.
	ctx = context.WithValue(ctx, utils.UserClaimsKey, &utils.UserClaims{
		UserID: ev.ActorID,
		OrgID:  ev.Contract.OrgID.Hex(),
	})
	ctx = context.WithValue(ctx, common_models.OrgIDKey, ev.Contract.OrgID.Hex())

	d.recordAudit(ctx, ev)
	d.invalidateCache(ctx, ev)
	d.notify(ctx, ev)
}

func (d *DispatcherImpl) recordAudit(ctx context.Context, ev TransitionEvent) {
	changes := map[string]common_models.Change{
		"status": {Old: ev.OldStatus, New: ev.NewStatus},
	}
	if ev.Comment != "" {
		changes["comment"] = common_models.Change{Old: nil, New: ev.Comment}
	}

	action := auditActionFor(ev.Action)
	if err := d.auditService.LogChange(ctx, action, "contracts", ev.Contract.ID.Hex(), changes); err != nil {
		d.logger.Warn("failed to write audit entry", zap.Error(err),
			zap.String("contract_id", ev.Contract.ID.Hex()))
	}
}

func (d *DispatcherImpl) invalidateCache(ctx context.Context, ev TransitionEvent) {
	if err := d.cacheService.InvalidateOrg(ctx, ev.Contract.OrgID); err != nil {
		d.logger.Warn("failed to invalidate org cache", zap.Error(err),
			zap.String("org_id", ev.Contract.OrgID.Hex()))
	}
}

func (d *DispatcherImpl) notify(ctx context.Context, ev TransitionEvent) {
	link := fmt.Sprintf("/dashboard/contracts/%s", ev.Contract.ID.Hex())

	// The author hears about every transition they did not perform themselves.
	if authorID := ev.Contract.CreatedByUserID; !authorID.IsZero() && authorID.Hex() != ev.ActorID {
		title, message := authorMessage(ev)
		if err := d.notificationService.CreateNotification(ctx, authorID, title, message, notifTypeFor(ev.Action), link); err != nil {
			d.logger.Warn("failed to notify contract author", zap.Error(err))
		}
	}

	switch ev.Action {
	case ActionEscalate:
		for _, a := range ev.Approvals {
			if a.IsEscalated() && !a.EscalatedTo.IsZero() {
				message := fmt.Sprintf("Contract %q has been escalated to you for review.", ev.Contract.Title)
				if err := d.notificationService.CreateNotification(ctx, a.EscalatedTo, "Contract escalated", message, notification.NotificationTypeEscalation, link); err != nil {
					d.logger.Warn("failed to notify escalation target", zap.Error(err))
				}
			}
		}
	case ActionApprove:
		// Wake the next pending reviewer, if one is assigned.
		for _, a := range ev.Approvals {
			if a.Status == common_models.ApprovalStatusPending && !a.ActorID.IsZero() {
				message := fmt.Sprintf("Contract %q is ready for %s review.", ev.Contract.Title, a.Type)
				if err := d.notificationService.CreateNotification(ctx, a.ActorID, "Review requested", message, notification.NotificationTypeApproval, link); err != nil {
					d.logger.Warn("failed to notify pending reviewer", zap.Error(err))
				}
			}
		}
	case ActionReject, ActionRequestRevision:
		d.emailAuthor(ctx, ev)
	}
}

func (d *DispatcherImpl) emailAuthor(ctx context.Context, ev TransitionEvent) {
	author, err := d.userRepo.FindByID(ctx, ev.Contract.CreatedByUserID.Hex())
	if err != nil || author == nil || author.Email == "" {
		return
	}

	subject := fmt.Sprintf("Contract %q needs your attention", ev.Contract.Title)
	body := fmt.Sprintf("The contract %q was moved to %s.", ev.Contract.Title, ev.NewStatus)
	if ev.Comment != "" {
		body += "\n\nReviewer comment: " + ev.Comment
	}

	if err := d.emailService.SendEmail(ctx, []string{author.Email}, subject, body); err != nil {
		d.logger.Warn("failed to email contract author", zap.Error(err),
			zap.String("contract_id", ev.Contract.ID.Hex()))
	}
}

func authorMessage(ev TransitionEvent) (string, string) {
	switch ev.Action {
	case ActionApprove:
		return "Contract review progressed", fmt.Sprintf("Contract %q is now %s.", ev.Contract.Title, ev.NewStatus)
	case ActionReject:
		return "Contract rejected", fmt.Sprintf("Contract %q was rejected.", ev.Contract.Title)
	case ActionRequestRevision:
		return "Revision requested", fmt.Sprintf("Changes were requested on contract %q.", ev.Contract.Title)
	case ActionEscalate:
		return "Contract escalated", fmt.Sprintf("Contract %q was escalated to a senior reviewer.", ev.Contract.Title)
	default:
		return "Contract updated", fmt.Sprintf("Contract %q is now %s.", ev.Contract.Title, ev.NewStatus)
	}
}

func notifTypeFor(action string) notification.NotificationType {
	switch action {
	case ActionReject, ActionRequestRevision:
		return notification.NotificationTypeWarning
	case ActionEscalate:
		return notification.NotificationTypeEscalation
	default:
		return notification.NotificationTypeApproval
	}
}

func auditActionFor(action string) common_models.AuditAction {
	switch action {
	case ActionSubmit:
		return common_models.AuditActionSubmit
	case ActionApprove:
		return common_models.AuditActionApproval
	case ActionReject:
		return common_models.AuditActionRejection
	case ActionRequestRevision:
		return common_models.AuditActionRevision
	case ActionEscalate, ActionReturn:
		return common_models.AuditActionEscalation
	case ActionCancel:
		return common_models.AuditActionCancel
	case ActionSend:
		return common_models.AuditActionSend
	case ActionConfirmSignature:
		return common_models.AuditActionSignature
	default:
		return common_models.AuditActionUpdate
	}
}
