package domain

import "time"

// Terminal token outcomes recorded in the completed set.
const (
	TokenSucceeded = "succeeded"
	TokenDuplicate = "duplicate_request"
)

// CompletedToken is a durable member of a form's completed-token set, keyed by
// (form_id, token). A token present here has reached a terminal outcome and
// must never be presented upstream again; the row expires at ExpiresAt and is
// purged by the repository.
type CompletedToken struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	FormID    string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_form_token,priority:1"`
	Token     string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_form_token,priority:2"`
	Outcome   string    `gorm:"type:varchar(32);not null;check:outcome IN ('succeeded','duplicate_request')"`
	Resource  string    `gorm:"type:varchar(64);not null;default:''"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (CompletedToken) TableName() string { return "completed_tokens" }
