// Package session defines the persisted active-role State entity and its
// store interface.
//
// State is the portal's role-preview mechanism: staff switch the portal to
// another role to test or demo it. It is advisory UI state, never a
// security boundary; server-side checks must not trust it as identity.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/pawdesk/gatehouse/catalog"
)

// ErrNotFound is returned when a session state cannot be found.
var ErrNotFound = errors.New("session: not found")

// State is the current {role, user} pair for one portal session.
type State struct {
	SessionID  string       `json:"session_id" db:"session_id"`
	FacilityID string       `json:"facility_id" db:"facility_id"`
	Role       catalog.Role `json:"role" db:"role"`
	UserID     string       `json:"user_id,omitempty" db:"user_id"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// Store defines persistence operations for session states.
type Store interface {
	// GetState retrieves a session's state.
	// Returns ErrNotFound for unknown sessions.
	GetState(ctx context.Context, facilityID, sessionID string) (*State, error)

	// SaveState creates or replaces a session's state.
	SaveState(ctx context.Context, st *State) error

	// DeleteState removes a session's state.
	DeleteState(ctx context.Context, facilityID, sessionID string) error
}
