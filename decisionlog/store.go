package decisionlog

import (
	"context"
	"time"
)

// Store defines persistence operations for decision-log entries.
type Store interface {
	// CreateEntry persists a new decision-log entry.
	CreateEntry(ctx context.Context, e *Entry) error

	// QueryEntries returns entries matching the filter, newest first.
	QueryEntries(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountEntries returns the number of entries matching the filter.
	CountEntries(ctx context.Context, filter *QueryFilter) (int64, error)

	// DeleteEntriesBefore removes entries created before the given time.
	// Returns the number of entries removed.
	DeleteEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteEntriesByFacility removes all entries for a facility.
	DeleteEntriesByFacility(ctx context.Context, facilityID string) error
}
