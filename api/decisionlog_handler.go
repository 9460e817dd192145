package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/pawdesk/gatehouse/decisionlog"
)

func (a *API) registerDecisionLogRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("decision-logs"))

	return g.GET("/decision-logs", a.listDecisionLogs,
		forge.WithSummary("Query decision logs"),
		forge.WithDescription("Returns access-decision audit logs with optional filters, newest first."),
		forge.WithOperationID("listDecisionLogs"),
		forge.WithRequestSchema(ListDecisionLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision log list", ListResponse[*decisionlog.Entry]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listDecisionLogs(ctx forge.Context, req *ListDecisionLogsRequest) (*ListResponse[*decisionlog.Entry], error) {
	filter := &decisionlog.QueryFilter{
		UserID:   req.UserID,
		Role:     req.Role,
		Decision: req.Decision,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}

	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest("invalid after timestamp")
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest("invalid before timestamp")
		}
		filter.Before = &t
	}

	logs, err := a.eng.DecisionLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.CountDecisionLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*decisionlog.Entry]{
		Items:  logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
