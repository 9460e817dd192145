// Package store defines the aggregate persistence interface. Each subsystem
// (rolematrix, override, session, decisionlog) defines its own store
// interface. The composite Store composes them all.
// Backends: Postgres, SQLite, MongoDB, and Memory.
package store

import (
	"context"

	"github.com/pawdesk/gatehouse/decisionlog"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/session"
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (postgres, sqlite, mongo, memory) implements all of them.
type Store interface {
	rolematrix.Store
	override.Store
	session.Store
	decisionlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
