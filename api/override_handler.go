package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/override"
)

func (a *API) registerOverrideRoutes(router forge.Router) error {
	g := router.Group("/v1/overrides", forge.WithGroupTags("overrides"))

	if err := g.GET("", a.listOverrides,
		forge.WithSummary("List user overrides"),
		forge.WithDescription("Lists the facility's per-user overrides, oldest first."),
		forge.WithOperationID("listOverrides"),
		forge.WithRequestSchema(ListOverridesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Override list", ListResponse[*override.Override]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("", a.upsertOverride,
		forge.WithSummary("Upsert user override"),
		forge.WithDescription("Grants or revokes one permission for one user. A write to an existing (user, permission) pair replaces it."),
		forge.WithOperationID("upsertOverride"),
		forge.WithRequestSchema(UpsertOverrideRequest{}),
		forge.WithCreatedResponse(&override.Override{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("", a.saveOverrides,
		forge.WithSummary("Replace all overrides"),
		forge.WithDescription("Atomically replaces the facility's whole override list."),
		forge.WithOperationID("saveOverrides"),
		forge.WithRequestSchema(SaveOverridesRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/users/:userId", a.resetUserOverrides,
		forge.WithSummary("Clear one user's overrides"),
		forge.WithDescription("Removes every override for the user. Idempotent."),
		forge.WithOperationID("resetUserOverrides"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("", a.resetAllOverrides,
		forge.WithSummary("Clear all overrides"),
		forge.WithDescription("Removes every override in the facility. Idempotent."),
		forge.WithOperationID("resetAllOverrides"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) listOverrides(ctx forge.Context, req *ListOverridesRequest) (*ListResponse[*override.Override], error) {
	filter := &override.ListFilter{
		UserID: req.UserID,
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}
	switch req.Granted {
	case "":
	case "true":
		t := true
		filter.Granted = &t
	case "false":
		f := false
		filter.Granted = &f
	default:
		return nil, forge.BadRequest("granted must be true or false")
	}

	list, err := a.eng.UserOverridesFiltered(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.CountUserOverrides(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*override.Override]{
		Items:  list,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) upsertOverride(ctx forge.Context, req *UpsertOverrideRequest) (*override.Override, error) {
	if req.UserID == "" {
		return nil, forge.BadRequest("user_id is required")
	}

	o := &override.Override{
		UserID:     req.UserID,
		Role:       catalog.Role(req.Role),
		Permission: catalog.Permission(req.Permission),
		Granted:    req.Granted,
		GrantedBy:  req.GrantedBy,
	}
	if err := a.eng.SetUserOverride(ctx.Context(), o); err != nil {
		return nil, mapError(err)
	}

	return o, ctx.JSON(http.StatusCreated, o)
}

func (a *API) saveOverrides(ctx forge.Context, req *SaveOverridesRequest) (*struct{}, error) {
	list := make([]*override.Override, 0, len(req.Overrides))
	for _, in := range req.Overrides {
		if in.UserID == "" {
			return nil, forge.BadRequest("user_id is required on every override")
		}
		r, err := catalog.ParseRole(in.Role)
		if err != nil {
			return nil, mapError(err)
		}
		p, err := catalog.ParsePermission(in.Permission)
		if err != nil {
			return nil, mapError(err)
		}
		list = append(list, &override.Override{
			UserID:     in.UserID,
			Role:       r,
			Permission: p,
			Granted:    in.Granted,
			GrantedBy:  in.GrantedBy,
		})
	}

	if err := a.eng.SaveUserOverrides(ctx.Context(), list); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) resetUserOverrides(ctx forge.Context, _ *UserPathRequest) (*struct{}, error) {
	userID := ctx.Param("userId")
	if userID == "" {
		return nil, forge.BadRequest("userId is required")
	}

	if err := a.eng.ResetUserOverrides(ctx.Context(), userID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) resetAllOverrides(ctx forge.Context, _ *struct{}) (*struct{}, error) {
	if err := a.eng.ResetAllUserOverrides(ctx.Context()); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}
