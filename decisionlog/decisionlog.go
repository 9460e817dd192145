// Package decisionlog defines the audit Entry recorded for permission and
// route resolution decisions.
package decisionlog

import (
	"time"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/id"
)

// Entry is a single resolution decision audit record.
type Entry struct {
	ID         id.DecisionID      `json:"id" db:"id"`
	FacilityID string             `json:"facility_id" db:"facility_id"`
	Role       catalog.Role       `json:"role" db:"role"`
	UserID     string             `json:"user_id,omitempty" db:"user_id"`
	Permission catalog.Permission `json:"permission,omitempty" db:"permission"`
	Route      string             `json:"route,omitempty" db:"route"`
	Decision   string             `json:"decision" db:"decision"`
	Reason     string             `json:"reason,omitempty" db:"reason"`
	EvalTimeNs int64              `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying decision-log entries.
type QueryFilter struct {
	FacilityID string     `json:"facility_id,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	Role       string     `json:"role,omitempty"`
	Decision   string     `json:"decision,omitempty"`
	After      *time.Time `json:"after,omitempty"`
	Before     *time.Time `json:"before,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
