package organization

import (
	"context"

	"go-clm/internal/common/models"
	"go-clm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, id string) (*models.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type OrganizationRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewOrganizationRepository(mongodb *database.MongodbDB) OrganizationRepository {
	return &OrganizationRepositoryImpl{
		Collection: mongodb.DB.Collection("organizations"),
	}
}

func (r *OrganizationRepositoryImpl) Create(ctx context.Context, org *models.Organization) error {
	_, err := r.Collection.InsertOne(ctx, org)
	return err
}

func (r *OrganizationRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var org models.Organization
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&org)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepositoryImpl) FindBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	err := r.Collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&org)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepositoryImpl) Update(ctx context.Context, org *models.Organization) error {
	filter := bson.M{"_id": org.ID}
	update := bson.M{"$set": org}
	_, err := r.Collection.UpdateOne(ctx, filter, update)
	return err
}

func (r *OrganizationRepositoryImpl) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}
