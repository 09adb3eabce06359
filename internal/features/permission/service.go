package permission

import (
	"context"
	"slices"

	"go-clm/internal/features/role"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PermissionService interface {
	ResolveForRoles(ctx context.Context, orgID string, roles []string) ([]string, error)
}

type PermissionServiceImpl struct {
	RoleRepo role.RoleRepository
}

func NewPermissionService(roleRepo role.RoleRepository) PermissionService {
	return &PermissionServiceImpl{
		RoleRepo: roleRepo,
	}
}

func (s *PermissionServiceImpl) ResolveForRoles(ctx context.Context, orgID string, roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return nil, err
	}

	return s.RoleRepo.FindPermissionsByNames(ctx, oid, roles)
}

// Has reports whether the resolved permission set contains code. Pure so the
// workflow engine can be tested without a database.
func Has(permissions []string, code string) bool {
	return slices.Contains(permissions, code)
}
