// Package plugin defines the plugin system for Gatehouse.
// Plugins are notified of lifecycle events (check performed, matrix
// saved, override upserted, role switched, etc.) and can react —
// logging, metrics, tracing, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/session"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeCheck is called before an access check is evaluated.
// The req parameter is *gatehouse.CheckRequest (passed as any to avoid import cycle).
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, req any) error
}

// AfterCheck is called after an access check completes.
// The req parameter is *gatehouse.CheckRequest; result is *gatehouse.CheckResult.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Role matrix lifecycle hooks
// ──────────────────────────────────────────────────

// MatrixSaved is called after a facility's custom role matrix is saved.
type MatrixSaved interface {
	OnMatrixSaved(ctx context.Context, m *rolematrix.Matrix) error
}

// MatrixRoleReset is called after a single role's customization is reset.
type MatrixRoleReset interface {
	OnMatrixRoleReset(ctx context.Context, facilityID string, r catalog.Role) error
}

// MatrixReset is called after a facility's entire matrix is reset to defaults.
type MatrixReset interface {
	OnMatrixReset(ctx context.Context, facilityID string) error
}

// ──────────────────────────────────────────────────
// Override lifecycle hooks
// ──────────────────────────────────────────────────

// OverrideUpserted is called after a per-user override is created or updated.
type OverrideUpserted interface {
	OnOverrideUpserted(ctx context.Context, o *override.Override) error
}

// OverridesReplaced is called after a facility's override list is replaced
// wholesale. n is the number of overrides in the new list.
type OverridesReplaced interface {
	OnOverridesReplaced(ctx context.Context, facilityID string, n int) error
}

// OverridesCleared is called after overrides are cleared. userID is empty
// when the whole facility was cleared.
type OverridesCleared interface {
	OnOverridesCleared(ctx context.Context, facilityID, userID string) error
}

// ──────────────────────────────────────────────────
// Session lifecycle hooks
// ──────────────────────────────────────────────────

// RoleSwitched is called after a session's active role changes.
type RoleSwitched interface {
	OnRoleSwitched(ctx context.Context, st *session.State) error
}

// UserSwitched is called after a session's active user changes.
type UserSwitched interface {
	OnUserSwitched(ctx context.Context, st *session.State) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
