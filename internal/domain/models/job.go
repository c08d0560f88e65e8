// internal/domain/models/job.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Job statuses.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job is one scheduled invocation of a workflow function. Payload carries
// identifiers only; functions re-read everything else when they run.
type Job struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Payload     map[string]string  `bson:"payload" json:"payload"`
	RunAt       time.Time          `bson:"run_at" json:"run_at"`
	Status      string             `bson:"status" json:"status"`
	Attempts    int                `bson:"attempts" json:"attempts"`
	LastError   string             `bson:"last_error,omitempty" json:"last_error,omitempty"`
	LockedBy    string             `bson:"locked_by,omitempty" json:"-"`
	LockedUntil *time.Time         `bson:"locked_until,omitempty" json:"-"`
	DedupeKey   string             `bson:"dedupe_key,omitempty" json:"dedupe_key,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
