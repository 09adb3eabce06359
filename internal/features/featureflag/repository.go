package featureflag

import (
	"context"

	"go-clm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FeatureFlagRepository interface {
	GetByCode(ctx context.Context, orgID primitive.ObjectID, code string) (*FeatureFlag, error)
	ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]FeatureFlag, error)
	Upsert(ctx context.Context, flag *FeatureFlag) error
}

type FeatureFlagRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewFeatureFlagRepository(mongodb *database.MongodbDB) FeatureFlagRepository {
	return &FeatureFlagRepositoryImpl{
		Collection: mongodb.DB.Collection("feature_flags"),
	}
}

func (r *FeatureFlagRepositoryImpl) GetByCode(ctx context.Context, orgID primitive.ObjectID, code string) (*FeatureFlag, error) {
	var flag FeatureFlag
	err := r.Collection.FindOne(ctx, bson.M{"org_id": orgID, "code": code}).Decode(&flag)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &flag, nil
}

func (r *FeatureFlagRepositoryImpl) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]FeatureFlag, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"org_id": orgID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flags []FeatureFlag
	if err = cursor.All(ctx, &flags); err != nil {
		return nil, err
	}
	return flags, nil
}

func (r *FeatureFlagRepositoryImpl) Upsert(ctx context.Context, flag *FeatureFlag) error {
	filter := bson.M{"org_id": flag.OrgID, "code": flag.Code}
	update := bson.M{"$set": bson.M{
		"enabled":    flag.Enabled,
		"updated_at": flag.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := r.Collection.UpdateOne(ctx, filter, update, opts)
	return err
}
