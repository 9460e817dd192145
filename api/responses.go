package api

// CheckResponse is the response for an access check.
type CheckResponse struct {
	Allowed    bool        `json:"allowed" description:"Whether the request is allowed"`
	Decision   string      `json:"decision" description:"Decision code"`
	Reason     string      `json:"reason,omitempty" description:"Human-readable reason"`
	MatchedBy  []MatchInfo `json:"matched_by,omitempty" description:"Layers that produced the decision"`
	EvalTimeNs int64       `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// MatchInfo identifies the layer that produced a decision.
type MatchInfo struct {
	Source string `json:"source" description:"Source layer (default, custom, override, route)"`
	Detail string `json:"detail,omitempty" description:"Match detail"`
}

// BatchCheckResponse contains results for multiple checks.
type BatchCheckResponse struct {
	Results []CheckResponse `json:"results" description:"Check results in order"`
}

// EffectivePermissionsResponse is the fully-resolved permission set.
type EffectivePermissionsResponse struct {
	Role        string   `json:"role" description:"Role resolved against"`
	UserID      string   `json:"user_id,omitempty" description:"User resolved against"`
	Permissions []string `json:"permissions" description:"Effective permission tokens, sorted"`
}

// CatalogResponse describes the closed role and permission catalog.
type CatalogResponse struct {
	Roles       []string            `json:"roles" description:"All roles"`
	Permissions []string            `json:"permissions" description:"All permission tokens"`
	Defaults    map[string][]string `json:"defaults" description:"Default role to permission mapping"`
}

// RouteRuleResponse is one route-table rule.
type RouteRuleResponse struct {
	Prefix   string   `json:"prefix" description:"Route path prefix"`
	Required []string `json:"required" description:"Permissions required (ALL must hold)"`
}

// MatrixResponse is the facility's custom role-permission matrix.
type MatrixResponse struct {
	FacilityID string              `json:"facility_id" description:"Facility ID"`
	Grants     map[string][]string `json:"grants" description:"Customized role to permission mapping"`
	UpdatedBy  string              `json:"updated_by,omitempty" description:"Last editor"`
	UpdatedAt  string              `json:"updated_at" description:"Last change time (RFC3339)"`
}

// SessionStateResponse is a session's active context.
type SessionStateResponse struct {
	SessionID  string   `json:"session_id" description:"Portal session ID"`
	FacilityID string   `json:"facility_id" description:"Facility ID"`
	Role       string   `json:"role" description:"Active role"`
	UserID     string   `json:"user_id,omitempty" description:"Active user"`
	UpdatedAt  string   `json:"updated_at" description:"Last change time (RFC3339)"`
	Effective  []string `json:"effective,omitempty" description:"Effective permissions after a switch"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
