package featureflag

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Flag codes recognized by the workflow engine.
const (
	FlagFinanceWorkflow = "FINANCE_WORKFLOW"
)

// FeatureFlag is an org-scoped toggle. Absent flags are disabled.
type FeatureFlag struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID     primitive.ObjectID `bson:"org_id" json:"org_id"`
	Code      string             `bson:"code" json:"code"`
	Enabled   bool               `bson:"enabled" json:"enabled"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
