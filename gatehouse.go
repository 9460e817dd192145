// Package gatehouse is the authorization core of the pet-care facility
// portal. It resolves which permissions and portal routes a (role, user)
// pair may use, layering three sources in strict precedence order:
// per-user overrides, then the facility's custom role matrix, then the
// built-in default matrix from the catalog.
//
//	eng, err := gatehouse.NewEngine(
//	    gatehouse.WithStore(memStore),
//	)
//	result, err := eng.Check(ctx, &gatehouse.CheckRequest{
//	    Role:       catalog.RoleStaff,
//	    UserID:     "user_123",
//	    Permission: catalog.PermBookingsManage,
//	})
//
// Resolution is a pure function of the stored matrix, the stored override
// list, and the request; the engine holds no hidden decision state. Route
// checks are fail-closed: a path with no matching rule is always denied.
package gatehouse

import "github.com/pawdesk/gatehouse/catalog"

// CheckRequest is the input to an authorization check. Exactly one of
// Permission or Route must be set.
type CheckRequest struct {
	Role       catalog.Role       `json:"role"`
	UserID     string             `json:"user_id,omitempty"`
	Permission catalog.Permission `json:"permission,omitempty"`
	Route      string             `json:"route,omitempty"`
}

// CheckResult is the outcome of an authorization check.
type CheckResult struct {
	Allowed    bool        `json:"allowed"`
	Decision   Decision    `json:"decision"`
	Reason     string      `json:"reason,omitempty"`
	MatchedBy  []MatchInfo `json:"matched_by,omitempty"`
	EvalTimeNs int64       `json:"eval_time_ns"`
}

// Decision is the authorization outcome.
type Decision string

const (
	// DecisionAllow means the request is permitted.
	DecisionAllow Decision = "allow"

	// DecisionDenyDefault means the resolved permission set lacks the
	// permission and no override intervened.
	DecisionDenyDefault Decision = "deny_default"

	// DecisionDenyOverride means a per-user override explicitly revoked
	// the permission.
	DecisionDenyOverride Decision = "deny_override"

	// DecisionDenyUnmappedRoute means no route rule matched the path
	// (fail-closed).
	DecisionDenyUnmappedRoute Decision = "deny_unmapped_route"

	// DecisionDenyMissingPerms means the route rule matched but the
	// resolved set lacks one or more required permissions.
	DecisionDenyMissingPerms Decision = "deny_missing_perms"
)

// MatchInfo describes which layer produced the decision.
type MatchInfo struct {
	// Source is "default", "custom", "override", or "route".
	Source string `json:"source"`
	Detail string `json:"detail,omitempty"`
}
