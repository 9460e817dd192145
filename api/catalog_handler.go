package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/pawdesk/gatehouse/catalog"
)

func (a *API) registerCatalogRoutes(router forge.Router) error {
	g := router.Group("/v1/catalog", forge.WithGroupTags("catalog"))

	if err := g.GET("", a.getCatalog,
		forge.WithSummary("Get catalog"),
		forge.WithDescription("Returns the closed role and permission catalog with the default matrix."),
		forge.WithOperationID("getCatalog"),
		forge.WithResponseSchema(http.StatusOK, "Catalog", CatalogResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/routes", a.getRouteTable,
		forge.WithSummary("Get route table"),
		forge.WithDescription("Returns the route-guard rules, longest prefix first."),
		forge.WithOperationID("getRouteTable"),
		forge.WithResponseSchema(http.StatusOK, "Route rules", []RouteRuleResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) getCatalog(ctx forge.Context, _ *struct{}) (*CatalogResponse, error) {
	roles := catalog.Roles()
	perms := catalog.Permissions()

	resp := &CatalogResponse{
		Roles:       make([]string, len(roles)),
		Permissions: make([]string, len(perms)),
		Defaults:    make(map[string][]string, len(roles)),
	}
	for i, r := range roles {
		resp.Roles[i] = string(r)
		resp.Defaults[string(r)] = permissionTokens(catalog.DefaultPermissions(r))
	}
	for i, p := range perms {
		resp.Permissions[i] = string(p)
	}

	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getRouteTable(ctx forge.Context, _ *struct{}) ([]RouteRuleResponse, error) {
	rules := a.eng.Routes().Rules()

	resp := make([]RouteRuleResponse, len(rules))
	for i, r := range rules {
		required := make([]string, len(r.Required))
		for j, p := range r.Required {
			required[j] = string(p)
		}
		resp[i] = RouteRuleResponse{Prefix: r.Prefix, Required: required}
	}

	return resp, ctx.JSON(http.StatusOK, resp)
}
