// Package override defines the per-user permission Override entity
// (an exception beyond what the user's role grants) and its store interface.
package override

import (
	"errors"
	"time"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/id"
)

// ErrNotFound is returned when an override cannot be found.
var ErrNotFound = errors.New("override: not found")

// Override grants or revokes a single permission for one specific user,
// regardless of what the user's role resolves to. Within a facility the
// pair (UserID, Permission) is unique; writes to an existing pair replace
// the Granted value instead of appending.
type Override struct {
	ID         id.OverrideID      `json:"id" db:"id"`
	FacilityID string             `json:"facility_id" db:"facility_id"`
	UserID     string             `json:"user_id" db:"user_id"`
	Role       catalog.Role       `json:"role" db:"role"`
	Permission catalog.Permission `json:"permission" db:"permission"`
	Granted    bool               `json:"granted" db:"granted"`
	GrantedBy  string             `json:"granted_by,omitempty" db:"granted_by"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing overrides.
type ListFilter struct {
	FacilityID string `json:"facility_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	Granted    *bool  `json:"granted,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
