package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/pawdesk/gatehouse"
	"github.com/pawdesk/gatehouse/catalog"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1/access", forge.WithGroupTags("access"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Access check"),
		forge.WithDescription("Evaluates whether the (role, user) pair holds a permission or may reach a route."),
		forge.WithOperationID("accessCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce access"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("accessEnforce"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/batch-check", a.batchCheck,
		forge.WithSummary("Batch access check"),
		forge.WithDescription("Evaluates multiple access checks in one request."),
		forge.WithOperationID("accessBatchCheck"),
		forge.WithRequestSchema(BatchCheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchCheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/effective-permissions", a.effectivePermissions,
		forge.WithSummary("Effective permissions"),
		forge.WithDescription("Returns the fully-resolved permission set for a (role, user) pair."),
		forge.WithOperationID("effectivePermissions"),
		forge.WithRequestSchema(EffectivePermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Effective set", EffectivePermissionsResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.Role == "" {
		return nil, forge.BadRequest("role is required")
	}

	result, err := a.eng.Check(ctx.Context(), toCheckRequest(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toCheckResponse(result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.Role == "" {
		return nil, forge.BadRequest("role is required")
	}

	result, err := a.eng.Check(ctx.Context(), toCheckRequest(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toCheckResponse(result)
	if !result.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) batchCheck(ctx forge.Context, req *BatchCheckRequest) (*BatchCheckResponse, error) {
	if len(req.Checks) == 0 {
		return nil, forge.BadRequest("checks cannot be empty")
	}

	results := make([]CheckResponse, len(req.Checks))
	for i, c := range req.Checks {
		result, err := a.eng.Check(ctx.Context(), toCheckRequest(&c))
		if err != nil {
			return nil, mapError(err)
		}
		results[i] = *toCheckResponse(result)
	}

	resp := &BatchCheckResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) effectivePermissions(ctx forge.Context, req *EffectivePermissionsRequest) (*EffectivePermissionsResponse, error) {
	r, err := catalog.ParseRole(req.Role)
	if err != nil {
		return nil, mapError(err)
	}

	set, err := a.eng.EffectivePermissions(ctx.Context(), r, req.UserID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &EffectivePermissionsResponse{
		Role:        req.Role,
		UserID:      req.UserID,
		Permissions: permissionTokens(set),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toCheckRequest(r *CheckRequest) *gatehouse.CheckRequest {
	return &gatehouse.CheckRequest{
		Role:       catalog.Role(r.Role),
		UserID:     r.UserID,
		Permission: catalog.Permission(r.Permission),
		Route:      r.Route,
	}
}

func toCheckResponse(r *gatehouse.CheckResult) *CheckResponse {
	resp := &CheckResponse{
		Allowed:    r.Allowed,
		Decision:   string(r.Decision),
		Reason:     r.Reason,
		EvalTimeNs: r.EvalTimeNs,
	}
	for _, m := range r.MatchedBy {
		resp.MatchedBy = append(resp.MatchedBy, MatchInfo{
			Source: m.Source,
			Detail: m.Detail,
		})
	}
	return resp
}

func permissionTokens(set catalog.Set) []string {
	perms := set.Slice()
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
