package sync

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncLog records one contract-register sync run.
type SyncLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID      primitive.ObjectID `bson:"org_id" json:"org_id"`
	StartedAt  time.Time          `bson:"started_at" json:"started_at"`
	FinishedAt *time.Time         `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	Status     string             `bson:"status" json:"status"`
	Processed  int                `bson:"processed" json:"processed"`
	Error      string             `bson:"error,omitempty" json:"error,omitempty"`
}

const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)
