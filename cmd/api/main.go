package main

import (
	"context"
	"fmt"
	common_api "go-clm/internal/common/api"
	"go-clm/internal/config"
	"go-clm/internal/database"
	"go-clm/internal/features/approval"
	"go-clm/internal/features/audit"
	"go-clm/internal/features/cache"
	"go-clm/internal/features/contract"
	cron_feature "go-clm/internal/features/cron"
	"go-clm/internal/features/email"
	"go-clm/internal/features/event"
	"go-clm/internal/features/featureflag"
	"go-clm/internal/features/notification"
	"go-clm/internal/features/organization"
	"go-clm/internal/features/permission"
	"go-clm/internal/features/report"
	"go-clm/internal/features/role"
	"go-clm/internal/features/sync"
	"go-clm/internal/features/system"
	"go-clm/internal/features/user"
	"go-clm/internal/logger"
	"go-clm/internal/middleware"
	"go-clm/pkg/utils"
	"log"
	"time"

	_ "go-clm/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, approvalRepo approval.ApprovalRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := approvalRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure approval indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// @title           Contract Lifecycle API
// @version         1.0
// @description     Contract approval workflow service using Fiber, Uber Fx and MongoDB.

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			organization.NewOrganizationRepository,
			user.NewUserRepository,
			role.NewRoleRepository,
			contract.NewContractRepository,
			approval.NewApprovalRepository,
			featureflag.NewFeatureFlagRepository,
			audit.NewAuditRepository,
			notification.NewNotificationRepository,
			sync.NewSyncLogRepository,

			notification.NewHub,

			// Initialize Service
			permission.NewPermissionService,
			featureflag.NewFeatureFlagService,
			audit.NewAuditService,
			notification.NewNotificationService,
			email.NewEmailService,
			cache.NewCacheService,
			event.NewDispatcher,
			contract.NewContractService,
			approval.NewWorkflowService,
			approval.NewEscalationService,
			sync.NewSyncService,
			report.NewReportService,
			cron_feature.NewCronService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(r approval.ApprovalRepository) contract.LiveGateFinder { return r },
			func(s permission.PermissionService) middleware.PermissionResolver { return s },
			func(r user.UserRepository) audit.UserFinder { return r },
			func(db *database.MongodbDB) approval.TxRunner { return db },

			// Initialize Controller
			contract.NewContractController,
			approval.NewApprovalController,
			featureflag.NewFeatureFlagController,
			audit.NewAuditController,
			notification.NewNotificationController,
			sync.NewSyncController,
			report.NewReportController,
			cron_feature.NewCronController,

			// Initialize API Routes
			AsRoute(contract.NewContractApi),
			AsRoute(approval.NewApprovalApi),
			AsRoute(featureflag.NewFeatureFlagApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(sync.NewSyncApi),
			AsRoute(report.NewReportApi),
			AsRoute(cron_feature.NewCronApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			InitializeIndexes,
			func(lc fx.Lifecycle, cronService cron_feature.CronService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return cronService.InitializeScheduler(ctx)
					},
					OnStop: func(ctx context.Context) error {
						return cronService.StopScheduler()
					},
				})
			},
		),
	)

	app.Run()
}
