package role

import (
	"context"

	"go-clm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	FindByName(ctx context.Context, orgID primitive.ObjectID, name string) (*Role, error)
	List(ctx context.Context, orgID primitive.ObjectID) ([]Role, error)
	// FindPermissionsByNames returns the union of permission codes granted by
	// the named roles within the organization.
	FindPermissionsByNames(ctx context.Context, orgID primitive.ObjectID, names []string) ([]string, error)
}

type RoleRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRoleRepository(mongodb *database.MongodbDB) RoleRepository {
	return &RoleRepositoryImpl{
		Collection: mongodb.DB.Collection("roles"),
	}
}

func (r *RoleRepositoryImpl) Create(ctx context.Context, role *Role) error {
	_, err := r.Collection.InsertOne(ctx, role)
	return err
}

func (r *RoleRepositoryImpl) FindByName(ctx context.Context, orgID primitive.ObjectID, name string) (*Role, error) {
	var role Role
	err := r.Collection.FindOne(ctx, bson.M{"org_id": orgID, "name": name}).Decode(&role)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepositoryImpl) List(ctx context.Context, orgID primitive.ObjectID) ([]Role, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"org_id": orgID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var roles []Role
	if err = cursor.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepositoryImpl) FindPermissionsByNames(ctx context.Context, orgID primitive.ObjectID, names []string) ([]string, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"org_id": orgID, "name": bson.M{"$in": names}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var roles []Role
	if err = cursor.All(ctx, &roles); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var codes []string
	for _, role := range roles {
		for _, code := range role.Permissions {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	return codes, nil
}
