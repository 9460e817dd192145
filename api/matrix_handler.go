package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/rolematrix"
)

func (a *API) registerMatrixRoutes(router forge.Router) error {
	g := router.Group("/v1/matrix", forge.WithGroupTags("matrix"))

	if err := g.GET("", a.getMatrix,
		forge.WithSummary("Get custom matrix"),
		forge.WithDescription("Returns the facility's custom role-permission matrix. 404 when the facility has no customization."),
		forge.WithOperationID("getMatrix"),
		forge.WithResponseSchema(http.StatusOK, "Custom matrix", MatrixResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("", a.saveMatrix,
		forge.WithSummary("Replace custom matrix"),
		forge.WithDescription("Atomically replaces the facility's whole custom matrix."),
		forge.WithOperationID("saveMatrix"),
		forge.WithRequestSchema(SaveMatrixRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Saved matrix", MatrixResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles/:role/permissions", a.updateRolePermission,
		forge.WithSummary("Grant or revoke one permission"),
		forge.WithDescription("Updates a single cell of the role-permission matrix."),
		forge.WithOperationID("updateRolePermission"),
		forge.WithRequestSchema(UpdateRolePermissionRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/roles/:role", a.resetRole,
		forge.WithSummary("Reset one role"),
		forge.WithDescription("Removes the role's custom entry, reverting it to the catalog default. Idempotent."),
		forge.WithOperationID("resetRolePermissions"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("", a.resetMatrix,
		forge.WithSummary("Reset whole matrix"),
		forge.WithDescription("Clears every customization, reverting all roles to catalog defaults. Idempotent."),
		forge.WithOperationID("resetMatrix"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) getMatrix(ctx forge.Context, _ *struct{}) (*MatrixResponse, error) {
	m, err := a.eng.CustomMatrix(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}

	resp := toMatrixResponse(m)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) saveMatrix(ctx forge.Context, req *SaveMatrixRequest) (*MatrixResponse, error) {
	m := rolematrix.New("")
	m.UpdatedBy = req.UpdatedBy
	for roleToken, permTokens := range req.Grants {
		r, err := catalog.ParseRole(roleToken)
		if err != nil {
			return nil, mapError(err)
		}
		set := make(catalog.Set, len(permTokens))
		for _, tok := range permTokens {
			p, err := catalog.ParsePermission(tok)
			if err != nil {
				return nil, mapError(err)
			}
			set.Add(p)
		}
		m.SetPermissions(r, set)
	}

	if err := a.eng.SaveCustomMatrix(ctx.Context(), m); err != nil {
		return nil, mapError(err)
	}

	resp := toMatrixResponse(m)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) updateRolePermission(ctx forge.Context, req *UpdateRolePermissionRequest) (*struct{}, error) {
	r, err := catalog.ParseRole(ctx.Param("role"))
	if err != nil {
		return nil, mapError(err)
	}
	p, err := catalog.ParsePermission(req.Permission)
	if err != nil {
		return nil, mapError(err)
	}

	if err := a.eng.UpdateRolePermission(ctx.Context(), r, p, req.Granted); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) resetRole(ctx forge.Context, _ *RolePathRequest) (*struct{}, error) {
	r, err := catalog.ParseRole(ctx.Param("role"))
	if err != nil {
		return nil, mapError(err)
	}

	if err := a.eng.ResetRolePermissions(ctx.Context(), r); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) resetMatrix(ctx forge.Context, _ *struct{}) (*struct{}, error) {
	if err := a.eng.ResetAllRolePermissions(ctx.Context()); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func toMatrixResponse(m *rolematrix.Matrix) *MatrixResponse {
	grants := make(map[string][]string, len(m.Grants))
	for r, set := range m.Grants {
		grants[string(r)] = permissionTokens(set)
	}
	return &MatrixResponse{
		FacilityID: m.FacilityID,
		Grants:     grants,
		UpdatedBy:  m.UpdatedBy,
		UpdatedAt:  m.UpdatedAt.Format(time.RFC3339),
	}
}
