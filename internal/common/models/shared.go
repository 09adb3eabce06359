package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	OrgIDKey ContextKey = "org_id"
)

type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionSubmit     AuditAction = "SUBMIT"
	AuditActionApproval   AuditAction = "APPROVAL"
	AuditActionRejection  AuditAction = "REJECTION"
	AuditActionRevision   AuditAction = "REVISION"
	AuditActionEscalation AuditAction = "ESCALATION"
	AuditActionCancel     AuditAction = "CANCEL"
	AuditActionSend       AuditAction = "SEND"
	AuditActionSignature  AuditAction = "SIGNATURE"
	AuditActionSync       AuditAction = "SYNC"
	AuditActionSettings   AuditAction = "SETTINGS"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID     primitive.ObjectID `bson:"org_id,omitempty" json:"org_id,omitempty"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	RecordID  string             `bson:"record_id" json:"record_id"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	ActorName string             `bson:"-" json:"actor_name,omitempty"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type Log struct {
	Message      string    `bson:"message" json:"message"`
	IpAddress    string    `bson:"ip_address" json:"ip_address"`
	OrgID        string    `bson:"org_id,omitempty" json:"org_id,omitempty"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	Caller       string    `bson:"caller" json:"caller"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}

type Organization struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Slug      string             `bson:"slug" json:"slug"`
	Plan      string             `bson:"plan" json:"plan"` // e.g. "enterprise"
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID     primitive.ObjectID `bson:"org_id,omitempty" json:"org_id,omitempty"`
	Username  string             `bson:"username" json:"username"`
	Password  string             `bson:"password" json:"-"`
	Email     string             `bson:"email" json:"email"`
	FirstName string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName  string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Status    string             `bson:"status" json:"status"` // active, inactive, suspended
	Roles     []string           `bson:"roles" json:"roles"`   // Role names (e.g. "legal_head")
	LastLogin *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
