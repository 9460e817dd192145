package override

import (
	"context"
)

// Store defines persistence operations for user permission overrides.
type Store interface {
	// ListOverrides returns overrides matching the filter, oldest first.
	ListOverrides(ctx context.Context, filter *ListFilter) ([]*Override, error)

	// CountOverrides returns the number of overrides matching the filter.
	CountOverrides(ctx context.Context, filter *ListFilter) (int64, error)

	// SaveOverrides atomically replaces all overrides for a facility.
	SaveOverrides(ctx context.Context, facilityID string, list []*Override) error

	// UpsertOverride inserts o, or, when an override for the same
	// (facility, user, permission) key exists, replaces its Granted value
	// in place so the list never grows for repeated writes to one key.
	UpsertOverride(ctx context.Context, o *Override) error

	// DeleteOverridesByUser removes every override for one user.
	DeleteOverridesByUser(ctx context.Context, facilityID, userID string) error

	// DeleteOverrides removes every override for a facility.
	DeleteOverrides(ctx context.Context, facilityID string) error
}
