package main

import (
	"context"
	"time"

	common_models "go-clm/internal/common/models"
	"go-clm/internal/config"
	"go-clm/internal/database"
	"go-clm/internal/features/featureflag"
	"go-clm/internal/features/organization"
	"go-clm/internal/features/permission"
	"go-clm/internal/features/role"
	"go-clm/internal/features/user"
	"go-clm/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type seedRole struct {
	name        string
	label       string
	permissions []string
}

type seedUser struct {
	username string
	email    string
	roles    []string
}

var defaultRoles = []seedRole{
	{
		name:        "contract_manager",
		label:       "Contract Manager",
		permissions: []string{permission.CodeEscalate},
	},
	{
		name:        "legal_reviewer",
		label:       "Legal Reviewer",
		permissions: []string{permission.CodeApproveLegal, permission.CodeEscalate},
	},
	{
		name:        "legal_head",
		label:       "Head of Legal",
		permissions: []string{permission.CodeApproveLegal, permission.CodeReject},
	},
	{
		name:        "finance_reviewer",
		label:       "Finance Reviewer",
		permissions: []string{permission.CodeApproveFinance},
	},
}

var defaultUsers = []seedUser{
	{username: "manager", email: "manager@example.com", roles: []string{"contract_manager"}},
	{username: "legal", email: "legal@example.com", roles: []string{"legal_reviewer"}},
	{username: "legalhead", email: "legalhead@example.com", roles: []string{"legal_head"}},
	{username: "finance", email: "finance@example.com", roles: []string{"finance_reviewer"}},
}

// Seed creates the default organization, workflow roles and demo users.
func Seed(
	lc fx.Lifecycle,
	orgRepo organization.OrganizationRepository,
	roleRepo role.RoleRepository,
	userRepo user.UserRepository,
	flagService featureflag.FeatureFlagService,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("Seeding database...")

				orgSlug := "default"
				var orgID primitive.ObjectID

				existingOrg, err := orgRepo.FindBySlug(ctx, orgSlug)
				if err != nil {
					logger.Error("Failed to look up organization", zap.Error(err))
					return
				}
				if existingOrg != nil {
					logger.Info("Organization exists, skipping", zap.String("slug", orgSlug))
					orgID = existingOrg.ID
				} else {
					// Fixed ObjectID for development consistency
					orgID, _ = primitive.ObjectIDFromHex("678e9a1b2c3d4e5f6a7b8c9e")
					now := time.Now()
					org := &common_models.Organization{
						ID:        orgID,
						Name:      "Default Organization",
						Slug:      orgSlug,
						Plan:      "enterprise",
						CreatedAt: now,
						UpdatedAt: now,
					}
					if err := orgRepo.Create(ctx, org); err != nil {
						logger.Error("Failed to create organization", zap.Error(err))
						return
					}
					logger.Info("Created organization", zap.String("slug", orgSlug))
				}

				for _, r := range defaultRoles {
					existing, err := roleRepo.FindByName(ctx, orgID, r.name)
					if err != nil {
						logger.Error("Failed to look up role", zap.String("role", r.name), zap.Error(err))
						continue
					}
					if existing != nil {
						logger.Info("Role exists, skipping", zap.String("role", r.name))
						continue
					}
					now := time.Now()
					if err := roleRepo.Create(ctx, &role.Role{
						OrgID:       orgID,
						Name:        r.name,
						Label:       r.label,
						Permissions: r.permissions,
						IsSystem:    true,
						CreatedAt:   now,
						UpdatedAt:   now,
					}); err != nil {
						logger.Error("Failed to create role", zap.String("role", r.name), zap.Error(err))
						continue
					}
					logger.Info("Created role", zap.String("role", r.name))
				}

				for _, u := range defaultUsers {
					existing, err := userRepo.FindByEmail(ctx, u.email)
					if err != nil {
						logger.Error("Failed to look up user", zap.String("email", u.email), zap.Error(err))
						continue
					}
					if existing != nil {
						logger.Info("User exists, skipping", zap.String("email", u.email))
						continue
					}
					now := time.Now()
					if err := userRepo.Create(ctx, &common_models.User{
						OrgID:     orgID,
						Username:  u.username,
						Email:     u.email,
						Status:    "active",
						Roles:     u.roles,
						CreatedAt: now,
						UpdatedAt: now,
					}); err != nil {
						logger.Error("Failed to create user", zap.String("email", u.email), zap.Error(err))
						continue
					}
					logger.Info("Created user", zap.String("email", u.email))
				}

				if err := flagService.SetFlag(ctx, orgID, featureflag.FlagFinanceWorkflow, false); err != nil {
					logger.Error("Failed to set finance workflow flag", zap.Error(err))
				}

				logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			organization.NewOrganizationRepository,
			role.NewRoleRepository,
			user.NewUserRepository,
			featureflag.NewFeatureFlagRepository,
			featureflag.NewFeatureFlagService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
