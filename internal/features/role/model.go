package role

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names a reviewer function within an organization and carries the
// permission codes that function grants.
type Role struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID       primitive.ObjectID `bson:"org_id" json:"org_id"`
	Name        string             `bson:"name" json:"name"` // e.g. "legal_reviewer", "legal_head"
	Label       string             `bson:"label,omitempty" json:"label,omitempty"`
	Permissions []string           `bson:"permissions" json:"permissions"`
	IsSystem    bool               `bson:"is_system" json:"is_system"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
