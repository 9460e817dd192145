package api

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for an access check. Exactly one of
// permission or route must be set.
type CheckRequest struct {
	Role       string `json:"role" description:"Active portal role"`
	UserID     string `json:"user_id,omitempty" description:"User for override resolution"`
	Permission string `json:"permission,omitempty" description:"Permission token to check"`
	Route      string `json:"route,omitempty" description:"Portal route path to check"`
}

// BatchCheckRequest contains multiple checks.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" description:"List of access checks"`
}

// EffectivePermissionsRequest holds query parameters for resolving the
// effective permission set.
type EffectivePermissionsRequest struct {
	Role   string `query:"role" description:"Active portal role"`
	UserID string `query:"user_id" description:"User for override resolution"`
}

// ──────────────────────────────────────────────────
// Matrix requests
// ──────────────────────────────────────────────────

// SaveMatrixRequest is the body for replacing the facility's custom matrix.
type SaveMatrixRequest struct {
	Grants    map[string][]string `json:"grants" description:"Role to permission-token list"`
	UpdatedBy string              `json:"updated_by,omitempty" description:"Actor performing the change"`
}

// UpdateRolePermissionRequest is the body for a single matrix cell change.
type UpdateRolePermissionRequest struct {
	Permission string `json:"permission" description:"Permission token"`
	Granted    bool   `json:"granted" description:"Grant (true) or revoke (false)"`
}

// RolePathRequest is the path parameter naming a role.
type RolePathRequest struct {
	Role string `path:"role" description:"Role token"`
}

// ──────────────────────────────────────────────────
// Override requests
// ──────────────────────────────────────────────────

// UpsertOverrideRequest is the body for granting or revoking a single
// permission for one user.
type UpsertOverrideRequest struct {
	UserID     string `json:"user_id" description:"Target user"`
	Role       string `json:"role" description:"User's role at grant time"`
	Permission string `json:"permission" description:"Permission token"`
	Granted    bool   `json:"granted" description:"Grant (true) or revoke (false)"`
	GrantedBy  string `json:"granted_by,omitempty" description:"Actor performing the change"`
}

// SaveOverridesRequest replaces the facility's whole override list.
type SaveOverridesRequest struct {
	Overrides []UpsertOverrideRequest `json:"overrides" description:"Full override list"`
}

// ListOverridesRequest holds query parameters for listing overrides.
type ListOverridesRequest struct {
	UserID  string `query:"user_id" description:"Filter by user"`
	Granted string `query:"granted" description:"Filter by granted flag (true/false)"`
	Limit   int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset  int    `query:"offset" description:"Results to skip"`
}

// UserPathRequest is the path parameter naming a user.
type UserPathRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// ──────────────────────────────────────────────────
// Session requests
// ──────────────────────────────────────────────────

// SessionPathRequest is the path parameter naming a session.
type SessionPathRequest struct {
	SessionID string `path:"sessionId" description:"Portal session ID"`
}

// SwitchRoleRequest is the body for switching a session's active role.
type SwitchRoleRequest struct {
	Role string `json:"role" description:"Role to switch to"`
}

// SetUserRequest is the body for switching a session's active user.
type SetUserRequest struct {
	UserID string `json:"user_id" description:"User to switch to (empty clears)"`
}

// ──────────────────────────────────────────────────
// Decision log requests
// ──────────────────────────────────────────────────

// ListDecisionLogsRequest holds query parameters for querying decision logs.
type ListDecisionLogsRequest struct {
	UserID   string `query:"user_id" description:"Filter by user"`
	Role     string `query:"role" description:"Filter by role"`
	Decision string `query:"decision" description:"Filter by decision code"`
	After    string `query:"after" description:"After timestamp (RFC3339)"`
	Before   string `query:"before" description:"Before timestamp (RFC3339)"`
	Limit    int    `query:"limit" description:"Maximum results"`
	Offset   int    `query:"offset" description:"Results to skip"`
}
