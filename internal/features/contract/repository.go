package contract

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

type ContractRepository interface {
	Create(ctx context.Context, contract *models.Contract) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contract, error)
	List(ctx context.Context, orgID primitive.ObjectID, status models.ContractStatus, page, limit int64) ([]models.Contract, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	// Touch bumps the contract's transaction sequence and returns the current
	// document. Called first inside every workflow transaction so concurrent
	// transitions on the same contract write-conflict instead of interleaving.
	Touch(ctx context.Context, id primitive.ObjectID) (*models.Contract, error)
}

type ContractRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewContractRepository(mongodb *database.MongodbDB) ContractRepository {
	return &ContractRepositoryImpl{
		Collection: mongodb.DB.Collection("contracts"),
	}
}

func (r *ContractRepositoryImpl) Create(ctx context.Context, contract *models.Contract) error {
	_, err := r.Collection.InsertOne(ctx, contract)
	return err
}

func (r *ContractRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contract, error) {
	var contract models.Contract
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&contract)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *ContractRepositoryImpl) List(ctx context.Context, orgID primitive.ObjectID, status models.ContractStatus, page, limit int64) ([]models.Contract, int64, error) {
	filter := bson.M{"org_id": orgID}
	if status != "" {
		filter["status"] = status
	}

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit).
		SetSkip((page - 1) * limit)

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var contracts []models.Contract
	if err = cursor.All(ctx, &contracts); err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

func (r *ContractRepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now()
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (r *ContractRepositoryImpl) Touch(ctx context.Context, id primitive.ObjectID) (*models.Contract, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var contract models.Contract
	err := r.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"txn_seq": 1}},
		opts,
	).Decode(&contract)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}
