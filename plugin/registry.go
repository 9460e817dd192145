package plugin

import (
	"context"
	"log/slog"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/session"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeCheckEntry struct {
	name string
	hook BeforeCheck
}
type afterCheckEntry struct {
	name string
	hook AfterCheck
}
type matrixSavedEntry struct {
	name string
	hook MatrixSaved
}
type matrixRoleResetEntry struct {
	name string
	hook MatrixRoleReset
}
type matrixResetEntry struct {
	name string
	hook MatrixReset
}
type overrideUpsertedEntry struct {
	name string
	hook OverrideUpserted
}
type overridesReplacedEntry struct {
	name string
	hook OverridesReplaced
}
type overridesClearedEntry struct {
	name string
	hook OverridesCleared
}
type roleSwitchedEntry struct {
	name string
	hook RoleSwitched
}
type userSwitchedEntry struct {
	name string
	hook UserSwitched
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCheck       []beforeCheckEntry
	afterCheck        []afterCheckEntry
	matrixSaved       []matrixSavedEntry
	matrixRoleReset   []matrixRoleResetEntry
	matrixReset       []matrixResetEntry
	overrideUpserted  []overrideUpsertedEntry
	overridesReplaced []overridesReplacedEntry
	overridesCleared  []overridesClearedEntry
	roleSwitched      []roleSwitchedEntry
	userSwitched      []userSwitchedEntry
	shutdown          []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeCheck); ok {
		r.beforeCheck = append(r.beforeCheck, beforeCheckEntry{name, h})
	}
	if h, ok := p.(AfterCheck); ok {
		r.afterCheck = append(r.afterCheck, afterCheckEntry{name, h})
	}
	if h, ok := p.(MatrixSaved); ok {
		r.matrixSaved = append(r.matrixSaved, matrixSavedEntry{name, h})
	}
	if h, ok := p.(MatrixRoleReset); ok {
		r.matrixRoleReset = append(r.matrixRoleReset, matrixRoleResetEntry{name, h})
	}
	if h, ok := p.(MatrixReset); ok {
		r.matrixReset = append(r.matrixReset, matrixResetEntry{name, h})
	}
	if h, ok := p.(OverrideUpserted); ok {
		r.overrideUpserted = append(r.overrideUpserted, overrideUpsertedEntry{name, h})
	}
	if h, ok := p.(OverridesReplaced); ok {
		r.overridesReplaced = append(r.overridesReplaced, overridesReplacedEntry{name, h})
	}
	if h, ok := p.(OverridesCleared); ok {
		r.overridesCleared = append(r.overridesCleared, overridesClearedEntry{name, h})
	}
	if h, ok := p.(RoleSwitched); ok {
		r.roleSwitched = append(r.roleSwitched, roleSwitchedEntry{name, h})
	}
	if h, ok := p.(UserSwitched); ok {
		r.userSwitched = append(r.userSwitched, userSwitchedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Check event emitters
// ──────────────────────────────────────────────────

// EmitBeforeCheck notifies all plugins that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, req any) {
	for _, e := range r.beforeCheck {
		if err := e.hook.OnBeforeCheck(ctx, req); err != nil {
			r.logHookError("OnBeforeCheck", e.name, err)
		}
	}
}

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, req, result any) {
	for _, e := range r.afterCheck {
		if err := e.hook.OnAfterCheck(ctx, req, result); err != nil {
			r.logHookError("OnAfterCheck", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Role matrix event emitters
// ──────────────────────────────────────────────────

// EmitMatrixSaved notifies all plugins that implement MatrixSaved.
func (r *Registry) EmitMatrixSaved(ctx context.Context, m *rolematrix.Matrix) {
	for _, e := range r.matrixSaved {
		if err := e.hook.OnMatrixSaved(ctx, m); err != nil {
			r.logHookError("OnMatrixSaved", e.name, err)
		}
	}
}

// EmitMatrixRoleReset notifies all plugins that implement MatrixRoleReset.
func (r *Registry) EmitMatrixRoleReset(ctx context.Context, facilityID string, rl catalog.Role) {
	for _, e := range r.matrixRoleReset {
		if err := e.hook.OnMatrixRoleReset(ctx, facilityID, rl); err != nil {
			r.logHookError("OnMatrixRoleReset", e.name, err)
		}
	}
}

// EmitMatrixReset notifies all plugins that implement MatrixReset.
func (r *Registry) EmitMatrixReset(ctx context.Context, facilityID string) {
	for _, e := range r.matrixReset {
		if err := e.hook.OnMatrixReset(ctx, facilityID); err != nil {
			r.logHookError("OnMatrixReset", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Override event emitters
// ──────────────────────────────────────────────────

// EmitOverrideUpserted notifies all plugins that implement OverrideUpserted.
func (r *Registry) EmitOverrideUpserted(ctx context.Context, o *override.Override) {
	for _, e := range r.overrideUpserted {
		if err := e.hook.OnOverrideUpserted(ctx, o); err != nil {
			r.logHookError("OnOverrideUpserted", e.name, err)
		}
	}
}

// EmitOverridesReplaced notifies all plugins that implement OverridesReplaced.
func (r *Registry) EmitOverridesReplaced(ctx context.Context, facilityID string, n int) {
	for _, e := range r.overridesReplaced {
		if err := e.hook.OnOverridesReplaced(ctx, facilityID, n); err != nil {
			r.logHookError("OnOverridesReplaced", e.name, err)
		}
	}
}

// EmitOverridesCleared notifies all plugins that implement OverridesCleared.
func (r *Registry) EmitOverridesCleared(ctx context.Context, facilityID, userID string) {
	for _, e := range r.overridesCleared {
		if err := e.hook.OnOverridesCleared(ctx, facilityID, userID); err != nil {
			r.logHookError("OnOverridesCleared", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Session event emitters
// ──────────────────────────────────────────────────

// EmitRoleSwitched notifies all plugins that implement RoleSwitched.
func (r *Registry) EmitRoleSwitched(ctx context.Context, st *session.State) {
	for _, e := range r.roleSwitched {
		if err := e.hook.OnRoleSwitched(ctx, st); err != nil {
			r.logHookError("OnRoleSwitched", e.name, err)
		}
	}
}

// EmitUserSwitched notifies all plugins that implement UserSwitched.
func (r *Registry) EmitUserSwitched(ctx context.Context, st *session.State) {
	for _, e := range r.userSwitched {
		if err := e.hook.OnUserSwitched(ctx, st); err != nil {
			r.logHookError("OnUserSwitched", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
