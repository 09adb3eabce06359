package middleware

import (
	"context"

	"go-clm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

const PermissionsKey = "permissions"

// PermissionResolver maps a user's roles to the set of permission codes they
// hold. Implemented by the permission service; adapted in main to avoid a
// middleware -> feature dependency.
type PermissionResolver interface {
	ResolveForRoles(ctx context.Context, orgID string, roles []string) ([]string, error)
}

// PermissionsMiddleware resolves the caller's permission codes once per
// request and stores them in locals for the workflow controllers.
func PermissionsMiddleware(resolver PermissionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok || claims == nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: No identity in request",
			})
		}

		codes, err := resolver.ResolveForRoles(c.UserContext(), claims.OrgID, claims.Roles)
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: Could not resolve permissions",
			})
		}

		c.Locals(PermissionsKey, codes)
		return c.Next()
	}
}
