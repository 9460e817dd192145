package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/pawdesk/gatehouse"
	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/session"
)

func (a *API) registerSessionRoutes(router forge.Router) error {
	g := router.Group("/v1/sessions", forge.WithGroupTags("sessions"))

	if err := g.GET("/:sessionId", a.getSession,
		forge.WithSummary("Get session state"),
		forge.WithDescription("Returns the session's active role and user."),
		forge.WithOperationID("getSession"),
		forge.WithResponseSchema(http.StatusOK, "Session state", SessionStateResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/:sessionId/role", a.switchRole,
		forge.WithSummary("Switch active role"),
		forge.WithDescription("Switches the session's active role and returns the freshly-resolved effective permission set."),
		forge.WithOperationID("switchRole"),
		forge.WithRequestSchema(SwitchRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "New state with effective set", SessionStateResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/:sessionId/user", a.setUser,
		forge.WithSummary("Switch active user"),
		forge.WithDescription("Switches the session's active user and returns the freshly-resolved effective permission set."),
		forge.WithOperationID("setSessionUser"),
		forge.WithRequestSchema(SetUserRequest{}),
		forge.WithResponseSchema(http.StatusOK, "New state with effective set", SessionStateResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/:sessionId", a.endSession,
		forge.WithSummary("End session"),
		forge.WithDescription("Removes the session's persisted state."),
		forge.WithOperationID("endSession"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) getSession(ctx forge.Context, _ *SessionPathRequest) (*SessionStateResponse, error) {
	st, err := a.eng.SessionState(ctx.Context(), ctx.Param("sessionId"))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toSessionResponse(st, nil)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) switchRole(ctx forge.Context, req *SwitchRoleRequest) (*SessionStateResponse, error) {
	r, err := catalog.ParseRole(req.Role)
	if err != nil {
		return nil, mapError(err)
	}

	s, err := gatehouse.NewSession(ctx.Context(), a.eng, ctx.Param("sessionId"), r)
	if err != nil {
		return nil, mapError(err)
	}

	effective, err := s.SwitchRole(ctx.Context(), r)
	if err != nil {
		return nil, mapError(err)
	}

	st := s.State()
	resp := toSessionResponse(&st, effective)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) setUser(ctx forge.Context, req *SetUserRequest) (*SessionStateResponse, error) {
	st, err := a.eng.SessionState(ctx.Context(), ctx.Param("sessionId"))
	if err != nil {
		return nil, mapError(err)
	}

	s, err := gatehouse.NewSession(ctx.Context(), a.eng, st.SessionID, st.Role)
	if err != nil {
		return nil, mapError(err)
	}

	effective, err := s.SetUser(ctx.Context(), req.UserID)
	if err != nil {
		return nil, mapError(err)
	}

	next := s.State()
	resp := toSessionResponse(&next, effective)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) endSession(ctx forge.Context, _ *SessionPathRequest) (*struct{}, error) {
	if err := a.eng.EndSession(ctx.Context(), ctx.Param("sessionId")); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func toSessionResponse(st *session.State, effective catalog.Set) *SessionStateResponse {
	resp := &SessionStateResponse{
		SessionID:  st.SessionID,
		FacilityID: st.FacilityID,
		Role:       string(st.Role),
		UserID:     st.UserID,
		UpdatedAt:  st.UpdatedAt.Format(time.RFC3339),
	}
	if effective != nil {
		resp.Effective = permissionTokens(effective)
	}
	return resp
}
