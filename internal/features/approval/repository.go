package approval

import (
	"context"
	"time"

	"go-clm/internal/common/models"
	"go-clm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ApprovalRepository interface {
	Create(ctx context.Context, approval *models.Approval) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Approval, error)
	FindLiveByContract(ctx context.Context, contractID primitive.ObjectID) ([]models.Approval, error)
	FindLiveByContractAndType(ctx context.Context, contractID primitive.ObjectID, approvalType models.ApprovalType) (*models.Approval, error)
	// DeleteByContractAndTypes removes stale gates of the given types so a
	// resubmission starts from a fresh live set.
	DeleteByContractAndTypes(ctx context.Context, contractID primitive.ObjectID, types []models.ApprovalType) error
	// Update applies a raw update document ($set/$unset) to one approval.
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) error
	// FindOverduePending returns pending gates whose due date passed before now.
	FindOverduePending(ctx context.Context, now time.Time) ([]models.Approval, error)
	EnsureIndexes(ctx context.Context) error
}

type ApprovalRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewApprovalRepository(mongodb *database.MongodbDB) ApprovalRepository {
	return &ApprovalRepositoryImpl{
		Collection: mongodb.DB.Collection("approvals"),
	}
}

func (r *ApprovalRepositoryImpl) Create(ctx context.Context, approval *models.Approval) error {
	_, err := r.Collection.InsertOne(ctx, approval)
	return err
}

func (r *ApprovalRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Approval, error) {
	var approval models.Approval
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&approval)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &approval, nil
}

func (r *ApprovalRepositoryImpl) FindLiveByContract(ctx context.Context, contractID primitive.ObjectID) ([]models.Approval, error) {
	opts := options.Find().SetSort(bson.M{"type": 1})

	cursor, err := r.Collection.Find(ctx, bson.M{"contract_id": contractID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var approvals []models.Approval
	if err = cursor.All(ctx, &approvals); err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *ApprovalRepositoryImpl) FindLiveByContractAndType(ctx context.Context, contractID primitive.ObjectID, approvalType models.ApprovalType) (*models.Approval, error) {
	var approval models.Approval
	err := r.Collection.FindOne(ctx, bson.M{"contract_id": contractID, "type": approvalType}).Decode(&approval)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &approval, nil
}

func (r *ApprovalRepositoryImpl) DeleteByContractAndTypes(ctx context.Context, contractID primitive.ObjectID, types []models.ApprovalType) error {
	_, err := r.Collection.DeleteMany(ctx, bson.M{
		"contract_id": contractID,
		"type":        bson.M{"$in": types},
	})
	return err
}

func (r *ApprovalRepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *ApprovalRepositoryImpl) FindOverduePending(ctx context.Context, now time.Time) ([]models.Approval, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"status":   models.ApprovalStatusPending,
		"due_date": bson.M{"$lt": now},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var approvals []models.Approval
	if err = cursor.All(ctx, &approvals); err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *ApprovalRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	// At most one live gate per (contract, type).
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "contract_id", Value: 1}, {Key: "type", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
