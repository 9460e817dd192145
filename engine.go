package gatehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/decisionlog"
	"github.com/pawdesk/gatehouse/id"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/plugin"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/store"
)

// Engine is the central permission resolver. It layers per-user overrides
// over the facility's custom matrix over the catalog defaults, gates
// routes through the route table, and fires plugin hooks.
//
// Read-modify-write mutations (UpdateRolePermission, SetUserOverride) are
// serialized within one process by an internal mutex. Across processes the
// store semantics are last-write-wins on whole entries: two admin sessions
// editing concurrently will silently keep only the later write. Deployments
// that need stronger guarantees must put a single writer in front of the
// store.
type Engine struct {
	store   store.Store
	cache   Cache
	routes  *RouteTable
	plugins *plugin.Registry
	logger  *slog.Logger
	config  Config

	mu sync.Mutex // serializes read-modify-write mutations in-process
}

// NewEngine creates a new gatehouse engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		routes: DefaultRouteTable(),
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, ErrStoreRequired
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Routes returns the active route table.
func (e *Engine) Routes() *RouteTable { return e.routes }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown, notifying plugins.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Resolution (hot path)
// ──────────────────────────────────────────────────

// Check performs an authorization check. This is the hot path.
func (e *Engine) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	start := time.Now()

	if (req.Permission == "") == (req.Route == "") {
		return nil, ErrInvalidCheck
	}
	if !catalog.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownRole, req.Role)
	}
	if req.Permission != "" && !catalog.ValidPermission(req.Permission) {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownPermission, req.Permission)
	}

	facilityID := facilityFromContext(ctx)

	if e.cache != nil && e.config.CacheTTL > 0 {
		if cached, ok := e.cache.Get(ctx, facilityID, req); ok {
			cached.EvalTimeNs = time.Since(start).Nanoseconds()
			return cached, nil
		}
	}

	if e.plugins != nil {
		e.plugins.EmitBeforeCheck(ctx, req)
	}

	effective := e.effectivePermissions(ctx, facilityID, req.Role, req.UserID)

	var result *CheckResult
	if req.Permission != "" {
		result = e.decidePermission(ctx, facilityID, req, effective)
	} else {
		result = e.decideRoute(req, effective)
	}
	result.EvalTimeNs = time.Since(start).Nanoseconds()

	if e.config.AuditDecisions {
		e.audit(ctx, facilityID, req, result)
	}

	if e.cache != nil && e.config.CacheTTL > 0 {
		e.cache.Set(ctx, facilityID, req, result)
	}

	if e.plugins != nil {
		e.plugins.EmitAfterCheck(ctx, req, result)
	}

	return result, nil
}

// Enforce returns an error if the authorization check is denied.
func (e *Engine) Enforce(ctx context.Context, req *CheckRequest) error {
	result, err := e.Check(ctx, req)
	if err != nil {
		return fmt.Errorf("gatehouse check: %w", err)
	}
	if !result.Allowed {
		return fmt.Errorf("%w: %s — %s", ErrAccessDenied, result.Decision, result.Reason)
	}
	return nil
}

// EffectivePermissions returns the fully-resolved permission set for a
// (role, user) pair: custom matrix entry (or catalog default) with every
// matching user override applied on top.
func (e *Engine) EffectivePermissions(ctx context.Context, r catalog.Role, userID string) (catalog.Set, error) {
	if !catalog.ValidRole(r) {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownRole, r)
	}
	return e.effectivePermissions(ctx, facilityFromContext(ctx), r, userID), nil
}

// HasPermission reports whether the (role, user) pair holds a permission.
func (e *Engine) HasPermission(ctx context.Context, r catalog.Role, p catalog.Permission, userID string) (bool, error) {
	result, err := e.Check(ctx, &CheckRequest{Role: r, UserID: userID, Permission: p})
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// CanAccessRoute reports whether the (role, user) pair may reach a portal
// route. Unmapped routes are always denied.
func (e *Engine) CanAccessRoute(ctx context.Context, r catalog.Role, route string, userID string) (bool, error) {
	result, err := e.Check(ctx, &CheckRequest{Role: r, UserID: userID, Route: route})
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// CanManagePermissions reports whether the (role, user) pair may edit the
// permission configuration itself.
func (e *Engine) CanManagePermissions(ctx context.Context, r catalog.Role, userID string) (bool, error) {
	return e.HasPermission(ctx, r, catalog.PermUsersManagePermissions, userID)
}

// effectivePermissions is the pure resolution core. Store errors degrade
// to the catalog defaults rather than failing the check: availability
// over precision on the hot path.
func (e *Engine) effectivePermissions(ctx context.Context, facilityID string, r catalog.Role, userID string) catalog.Set {
	base := catalog.DefaultPermissions(r)

	if e.config.customMatrixEnabled() {
		m, err := e.store.GetMatrix(ctx, facilityID)
		switch {
		case err == nil:
			if custom, ok := m.PermissionsFor(r); ok {
				base = custom.Clone()
			}
		case errors.Is(err, rolematrix.ErrNotCustomized):
			// No customization; defaults stand.
		default:
			e.logger.WarnContext(ctx, "gatehouse: custom matrix unreadable, using defaults",
				"facility_id", facilityID, "role", r, "error", err)
		}
	}

	if userID == "" || !e.config.overridesEnabled() {
		return base
	}

	list, err := e.store.ListOverrides(ctx, &override.ListFilter{
		FacilityID: facilityID,
		UserID:     userID,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "gatehouse: overrides unreadable, ignoring",
			"facility_id", facilityID, "user_id", userID, "error", err)
		return base
	}
	for _, o := range list {
		if o.Granted {
			base.Add(o.Permission)
		} else {
			base.Remove(o.Permission)
		}
	}
	return base
}

func (e *Engine) decidePermission(ctx context.Context, facilityID string, req *CheckRequest, effective catalog.Set) *CheckResult {
	if effective.Has(req.Permission) {
		return &CheckResult{
			Allowed:   true,
			Decision:  DecisionAllow,
			MatchedBy: []MatchInfo{e.matchSource(ctx, facilityID, req)},
		}
	}

	decision := DecisionDenyDefault
	reason := "permission not in effective set"
	if req.UserID != "" && e.config.overridesEnabled() {
		if o, ok := e.findOverride(ctx, facilityID, req.UserID, req.Permission); ok && !o.Granted {
			decision = DecisionDenyOverride
			reason = "permission revoked by user override"
		}
	}
	return &CheckResult{Decision: decision, Reason: reason}
}

func (e *Engine) decideRoute(req *CheckRequest, effective catalog.Set) *CheckResult {
	rule, ok := e.routes.Match(req.Route)
	if !ok {
		return &CheckResult{
			Decision: DecisionDenyUnmappedRoute,
			Reason:   "no route rule matches " + req.Route,
		}
	}
	for _, p := range rule.Required {
		if !effective.Has(p) {
			return &CheckResult{
				Decision: DecisionDenyMissingPerms,
				Reason:   "route requires " + string(p),
				MatchedBy: []MatchInfo{{
					Source: "route",
					Detail: "rule " + rule.Prefix,
				}},
			}
		}
	}
	return &CheckResult{
		Allowed:  true,
		Decision: DecisionAllow,
		MatchedBy: []MatchInfo{{
			Source: "route",
			Detail: "rule " + rule.Prefix,
		}},
	}
}

// matchSource reports which layer granted a permission, for audit detail.
func (e *Engine) matchSource(ctx context.Context, facilityID string, req *CheckRequest) MatchInfo {
	if req.UserID != "" && e.config.overridesEnabled() {
		if o, ok := e.findOverride(ctx, facilityID, req.UserID, req.Permission); ok && o.Granted {
			return MatchInfo{Source: "override", Detail: "granted to user " + req.UserID}
		}
	}
	if e.config.customMatrixEnabled() {
		if m, err := e.store.GetMatrix(ctx, facilityID); err == nil {
			if custom, ok := m.PermissionsFor(req.Role); ok && custom.Has(req.Permission) {
				return MatchInfo{Source: "custom", Detail: "facility matrix grants " + string(req.Permission)}
			}
		}
	}
	return MatchInfo{Source: "default", Detail: "role " + string(req.Role) + " grants " + string(req.Permission)}
}

func (e *Engine) findOverride(ctx context.Context, facilityID, userID string, p catalog.Permission) (*override.Override, bool) {
	list, err := e.store.ListOverrides(ctx, &override.ListFilter{
		FacilityID: facilityID,
		UserID:     userID,
	})
	if err != nil {
		return nil, false
	}
	for _, o := range list {
		if o.Permission == p {
			return o, true
		}
	}
	return nil, false
}

func (e *Engine) audit(ctx context.Context, facilityID string, req *CheckRequest, result *CheckResult) {
	entry := &decisionlog.Entry{
		ID:         id.NewDecisionID(),
		FacilityID: facilityID,
		Role:       req.Role,
		UserID:     req.UserID,
		Permission: req.Permission,
		Route:      req.Route,
		Decision:   string(result.Decision),
		Reason:     result.Reason,
		EvalTimeNs: result.EvalTimeNs,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.store.CreateEntry(ctx, entry); err != nil {
		e.logger.WarnContext(ctx, "gatehouse: decision audit write failed", "error", err)
	}
}

// ──────────────────────────────────────────────────
// Matrix mutations
// ──────────────────────────────────────────────────

// CustomMatrix returns the facility's custom matrix, or
// rolematrix.ErrNotCustomized when none exists.
func (e *Engine) CustomMatrix(ctx context.Context) (*rolematrix.Matrix, error) {
	return e.store.GetMatrix(ctx, facilityFromContext(ctx))
}

// SaveCustomMatrix atomically replaces the facility's whole custom matrix.
func (e *Engine) SaveCustomMatrix(ctx context.Context, m *rolematrix.Matrix) error {
	facilityID := facilityFromContext(ctx)
	if m.FacilityID == "" {
		m.FacilityID = facilityID
	}
	m.UpdatedAt = time.Now().UTC()

	e.mu.Lock()
	err := e.store.SaveMatrix(ctx, m)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gatehouse: save custom matrix: %w", err)
	}

	e.invalidateFacility(ctx, facilityID)
	if e.plugins != nil {
		e.plugins.EmitMatrixSaved(ctx, m)
	}
	return nil
}

// UpdateRolePermission grants or revokes a single permission in a role's
// customized set. The role's current effective entry (custom if present,
// else the catalog default) is read, modified, and written back; the
// internal mutex serializes concurrent in-process editors.
func (e *Engine) UpdateRolePermission(ctx context.Context, r catalog.Role, p catalog.Permission, granted bool) error {
	if !catalog.ValidRole(r) {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownRole, r)
	}
	if !catalog.ValidPermission(p) {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownPermission, p)
	}
	facilityID := facilityFromContext(ctx)

	e.mu.Lock()
	m, err := e.store.GetMatrix(ctx, facilityID)
	if errors.Is(err, rolematrix.ErrNotCustomized) {
		m = rolematrix.New(facilityID)
		err = nil
	}
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("gatehouse: update role permission: %w", err)
	}

	set, ok := m.PermissionsFor(r)
	if !ok {
		set = catalog.DefaultPermissions(r)
	} else {
		set = set.Clone()
	}
	if granted {
		set.Add(p)
	} else {
		set.Remove(p)
	}
	m.SetPermissions(r, set)
	m.UpdatedAt = time.Now().UTC()

	err = e.store.SaveMatrix(ctx, m)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gatehouse: update role permission: %w", err)
	}

	e.invalidateFacility(ctx, facilityID)
	if e.plugins != nil {
		e.plugins.EmitMatrixSaved(ctx, m)
	}
	return nil
}

// ResetRolePermissions removes the custom entry for one role, reverting it
// to the catalog default. Resetting an uncustomized role is a no-op, so
// the call is idempotent.
func (e *Engine) ResetRolePermissions(ctx context.Context, r catalog.Role) error {
	if !catalog.ValidRole(r) {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownRole, r)
	}
	facilityID := facilityFromContext(ctx)

	e.mu.Lock()
	err := e.store.DeleteRole(ctx, facilityID, r)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gatehouse: reset role permissions: %w", err)
	}

	e.invalidateFacility(ctx, facilityID)
	if e.plugins != nil {
		e.plugins.EmitMatrixRoleReset(ctx, facilityID, r)
	}
	return nil
}

// ResetAllRolePermissions clears the facility's entire custom matrix.
func (e *Engine) ResetAllRolePermissions(ctx context.Context) error {
	facilityID := facilityFromContext(ctx)

	e.mu.Lock()
	err := e.store.DeleteMatrix(ctx, facilityID)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gatehouse: reset all role permissions: %w", err)
	}

	e.invalidateFacility(ctx, facilityID)
	if e.plugins != nil {
		e.plugins.EmitMatrixReset(ctx, facilityID)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Override mutations
// ──────────────────────────────────────────────────

// UserOverrides returns the facility's override list, oldest first.
func (e *Engine) UserOverrides(ctx context.Context) ([]*override.Override, error) {
	return e.store.ListOverrides(ctx, &override.ListFilter{
		FacilityID: facilityFromContext(ctx),
	})
}

// UserOverridesFiltered returns the facility's overrides matching the
// filter. The filter's facility is always the current scope.
func (e *Engine) UserOverridesFiltered(ctx context.Context, filter *override.ListFilter) ([]*override.Override, error) {
	f := *filter
	f.FacilityID = facilityFromContext(ctx)
	return e.store.ListOverrides(ctx, &f)
}

// CountUserOverrides counts the facility's overrides matching the filter.
func (e *Engine) CountUserOverrides(ctx context.Context, filter *override.ListFilter) (int64, error) {
	f := *filter
	f.FacilityID = facilityFromContext(ctx)
	return e.store.CountOverrides(ctx, &f)
}

// SetUserOverride upserts a per-user grant or revoke keyed by
// (user, permission). A repeated write to the same key replaces the
// existing entry instead of appending.
func (e *Engine) SetUserOverride(ctx context.Context, o *override.Override) error {
	if o.UserID == "" {
		return errors.New("gatehouse: override user_id is required")
	}
	if !catalog.ValidRole(o.Role) {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownRole, o.Role)
	}
	if !catalog.ValidPermission(o.Permission) {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownPermission, o.Permission)
	}

	facilityID := facilityFromContext(ctx)
	if o.FacilityID == "" {
		o.FacilityID = facilityID
	}
	now := time.Now().UTC()
	if o.ID.IsNil() {
		o.ID = id.NewOverrideID()
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	e.mu.Lock()
	err := e.store.UpsertOverride(ctx, o)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gatehouse: set user override: %w", err)
	}

	e.invalidateUser(ctx, facilityID, o.UserID)
	if e.plugins != nil {
		e.plugins.EmitOverrideUpserted(ctx, o)
	}
	return nil
}

// SaveUserOverrides atomically replaces the facility's whole override list.
func (e *Engine) SaveUserOverrides(ctx context.Context, list []*override.Override) error {
	facilityID := facilityFromContext(ctx)
	now := time.Now().UTC()
	for _, o := range list {
		if o.FacilityID == "" {
			o.FacilityID = facilityID
		}
		if o.ID.IsNil() {
			o.ID = id.NewOverrideID()
			o.CreatedAt = now
		}
		if o.UpdatedAt.IsZero() {
			o.UpdatedAt = now
		}
	}

	e.mu.Lock()
	err := e.store.SaveOverrides(ctx, facilityID, list)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gatehouse: save user overrides: %w", err)
	}

	e.invalidateFacility(ctx, facilityID)
	if e.plugins != nil {
		e.plugins.EmitOverridesReplaced(ctx, facilityID, len(list))
	}
	return nil
}

// ResetUserOverrides removes all overrides for one user.
func (e *Engine) ResetUserOverrides(ctx context.Context, userID string) error {
	facilityID := facilityFromContext(ctx)

	e.mu.Lock()
	err := e.store.DeleteOverridesByUser(ctx, facilityID, userID)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gatehouse: reset user overrides: %w", err)
	}

	e.invalidateUser(ctx, facilityID, userID)
	if e.plugins != nil {
		e.plugins.EmitOverridesCleared(ctx, facilityID, userID)
	}
	return nil
}

// ResetAllUserOverrides removes every override in the facility.
func (e *Engine) ResetAllUserOverrides(ctx context.Context) error {
	facilityID := facilityFromContext(ctx)

	e.mu.Lock()
	err := e.store.DeleteOverrides(ctx, facilityID)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gatehouse: reset all user overrides: %w", err)
	}

	e.invalidateFacility(ctx, facilityID)
	if e.plugins != nil {
		e.plugins.EmitOverridesCleared(ctx, facilityID, "")
	}
	return nil
}

// ──────────────────────────────────────────────────
// Decision log queries
// ──────────────────────────────────────────────────

// DecisionLogs returns the facility's decision audit entries matching the
// filter, newest first.
func (e *Engine) DecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	f := *filter
	f.FacilityID = facilityFromContext(ctx)
	return e.store.QueryEntries(ctx, &f)
}

// CountDecisionLogs counts the facility's decision audit entries matching
// the filter.
func (e *Engine) CountDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	f := *filter
	f.FacilityID = facilityFromContext(ctx)
	return e.store.CountEntries(ctx, &f)
}

// PurgeDecisionLogs removes audit entries older than the cutoff, across
// all facilities, and reports how many were removed.
func (e *Engine) PurgeDecisionLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	return e.store.DeleteEntriesBefore(ctx, cutoff)
}

// ──────────────────────────────────────────────────
// Cache invalidation
// ──────────────────────────────────────────────────

func (e *Engine) invalidateFacility(ctx context.Context, facilityID string) {
	if e.cache != nil {
		e.cache.InvalidateFacility(ctx, facilityID)
	}
}

func (e *Engine) invalidateUser(ctx context.Context, facilityID, userID string) {
	if e.cache != nil {
		e.cache.InvalidateUser(ctx, facilityID, userID)
	}
}
