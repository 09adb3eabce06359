package sync

import (
	"context"

	"go-clm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SyncLogRepository interface {
	Create(ctx context.Context, log *SyncLog) error
	Update(ctx context.Context, log *SyncLog) error
	List(ctx context.Context, orgID primitive.ObjectID, limit int64) ([]SyncLog, error)
}

type SyncLogRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewSyncLogRepository(mongodb *database.MongodbDB) SyncLogRepository {
	return &SyncLogRepositoryImpl{
		Collection: mongodb.DB.Collection("sync_logs"),
	}
}

func (r *SyncLogRepositoryImpl) Create(ctx context.Context, log *SyncLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, log)
	return err
}

func (r *SyncLogRepositoryImpl) Update(ctx context.Context, log *SyncLog) error {
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": log.ID}, log)
	return err
}

func (r *SyncLogRepositoryImpl) List(ctx context.Context, orgID primitive.ObjectID, limit int64) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.M{"started_at": -1}).SetLimit(limit)

	cursor, err := r.Collection.Find(ctx, bson.M{"org_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []SyncLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
