// Package domain defines the gateway's persistence models, the resource table
// that maps gateway resource names to upstream paths and schemas, and the
// reference and lookup shapes exchanged with the upstream accounting API.
package domain

import "time"

// Submission statuses. They are also the `status` field of the outcome body
// returned by the form endpoints.
const (
	StatusSucceeded         = "succeeded"
	StatusInvalid           = "invalid"
	StatusAlreadySubmitting = "already_submitting"
	StatusDuplicateRequest  = "duplicate_request"
	StatusTokenConsumed     = "token_consumed"
	StatusFailed            = "failed"
)

// Submission operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Submission is the audit row written for every submission attempt that
// reached the orchestrator.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - FormID: the form instance that owns the guard (indexed with CreatedAt).
//   - Resource / Operation: what was submitted and how.
//   - Token: idempotency token presented upstream (empty when none was minted).
//   - Status: one of the Status* constants.
//   - ErrorKind: apperr kind for non-successful outcomes.
//   - UpstreamID: id returned by the upstream API on success, when known.
type Submission struct {
	ID         string    `json:"id"                    gorm:"type:char(36);primaryKey"`
	FormID     string    `json:"form_id"               gorm:"type:varchar(128);not null;index:idx_form_submissions,priority:1"`
	Resource   string    `json:"resource"              gorm:"type:varchar(64);not null"`
	Operation  string    `json:"operation"             gorm:"type:varchar(16);not null;check:operation IN ('create','update','delete')"`
	Token      string    `json:"token,omitempty"       gorm:"type:varchar(200);not null;default:''"`
	Status     string    `json:"status"                gorm:"type:varchar(32);not null;check:status IN ('succeeded','invalid','already_submitting','duplicate_request','token_consumed','failed')"`
	ErrorKind  string    `json:"error_kind,omitempty"  gorm:"type:varchar(64);not null;default:''"`
	UpstreamID *int64    `json:"upstream_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"            gorm:"index:idx_form_submissions,priority:2"`
}

// TableName returns the database table name for Submission.
func (Submission) TableName() string { return "submissions" }
