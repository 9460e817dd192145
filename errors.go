package gatehouse

import "errors"

var (
	// ErrAccessDenied is returned by Enforce when a check is denied.
	ErrAccessDenied = errors.New("gatehouse: access denied")

	// ErrInvalidCheck is returned when a CheckRequest names neither a
	// permission nor a route, or both.
	ErrInvalidCheck = errors.New("gatehouse: check must name exactly one of permission or route")

	// ErrStoreRequired is returned by NewEngine when no store was provided.
	ErrStoreRequired = errors.New("gatehouse: store is required")

	// ErrSessionClosed is returned by Session operations after Close.
	ErrSessionClosed = errors.New("gatehouse: session closed")
)
