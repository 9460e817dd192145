package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/decisionlog"
	"github.com/pawdesk/gatehouse/id"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/session"
)

// ──────────────────────────────────────────────────
// Role grant model (one row per customized role)
// ──────────────────────────────────────────────────

type roleGrantModel struct {
	grove.BaseModel `grove:"table:gatehouse_role_grants"`
	FacilityID      string    `grove:"facility_id,pk"`
	Role            string    `grove:"role,pk"`
	Permissions     string    `grove:"permissions"` // JSON text
	UpdatedBy       string    `grove:"updated_by"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func matrixToModels(m *rolematrix.Matrix) ([]roleGrantModel, error) {
	models := make([]roleGrantModel, 0, len(m.Grants))
	for r, set := range m.Grants {
		perms := make([]string, 0, len(set))
		for _, p := range set.Slice() {
			perms = append(perms, string(p))
		}
		raw, err := json.Marshal(perms)
		if err != nil {
			return nil, fmt.Errorf("marshal role permissions: %w", err)
		}
		models = append(models, roleGrantModel{
			FacilityID:  m.FacilityID,
			Role:        string(r),
			Permissions: string(raw),
			UpdatedBy:   m.UpdatedBy,
			UpdatedAt:   m.UpdatedAt,
		})
	}
	return models, nil
}

// matrixFromModels rebuilds a matrix from its rows. Rows for roles no longer
// in the catalog, unparseable JSON, and unknown permission tokens are all
// dropped, so a corrupted row degrades that role to its default instead of
// failing checks.
func matrixFromModels(facilityID string, models []roleGrantModel) *rolematrix.Matrix {
	m := rolematrix.New(facilityID)
	for i := range models {
		r, err := catalog.ParseRole(models[i].Role)
		if err != nil {
			continue
		}
		var perms []string
		if err := json.Unmarshal([]byte(models[i].Permissions), &perms); err != nil {
			continue
		}
		set := make(catalog.Set, len(perms))
		for _, tok := range perms {
			p, err := catalog.ParsePermission(tok)
			if err != nil {
				continue
			}
			set.Add(p)
		}
		m.Grants[r] = set
		if models[i].UpdatedAt.After(m.UpdatedAt) {
			m.UpdatedBy = models[i].UpdatedBy
			m.UpdatedAt = models[i].UpdatedAt
		}
	}
	return m
}

// ──────────────────────────────────────────────────
// Override model
// ──────────────────────────────────────────────────

type overrideModel struct {
	grove.BaseModel `grove:"table:gatehouse_user_overrides"`
	ID              string    `grove:"id,pk"`
	FacilityID      string    `grove:"facility_id,notnull"`
	UserID          string    `grove:"user_id,notnull"`
	Role            string    `grove:"role"`
	Permission      string    `grove:"permission,notnull"`
	Granted         bool      `grove:"granted,notnull"`
	GrantedBy       string    `grove:"granted_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func overrideToModel(o *override.Override) *overrideModel {
	return &overrideModel{
		ID:         o.ID.String(),
		FacilityID: o.FacilityID,
		UserID:     o.UserID,
		Role:       string(o.Role),
		Permission: string(o.Permission),
		Granted:    o.Granted,
		GrantedBy:  o.GrantedBy,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func overrideFromModel(m *overrideModel) *override.Override {
	oid, _ := id.ParseOverrideID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &override.Override{
		ID:         oid,
		FacilityID: m.FacilityID,
		UserID:     m.UserID,
		Role:       catalog.Role(m.Role),
		Permission: catalog.Permission(m.Permission),
		Granted:    m.Granted,
		GrantedBy:  m.GrantedBy,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Session state model
// ──────────────────────────────────────────────────

type sessionStateModel struct {
	grove.BaseModel `grove:"table:gatehouse_session_states"`
	FacilityID      string    `grove:"facility_id,pk"`
	SessionID       string    `grove:"session_id,pk"`
	Role            string    `grove:"role,notnull"`
	UserID          string    `grove:"user_id"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func stateToModel(st *session.State) *sessionStateModel {
	return &sessionStateModel{
		FacilityID: st.FacilityID,
		SessionID:  st.SessionID,
		Role:       string(st.Role),
		UserID:     st.UserID,
		UpdatedAt:  st.UpdatedAt,
	}
}

func stateFromModel(m *sessionStateModel) *session.State {
	return &session.State{
		SessionID:  m.SessionID,
		FacilityID: m.FacilityID,
		Role:       catalog.Role(m.Role),
		UserID:     m.UserID,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Decision log model
// ──────────────────────────────────────────────────

type decisionLogModel struct {
	grove.BaseModel `grove:"table:gatehouse_decision_logs"`
	ID              string    `grove:"id,pk"`
	FacilityID      string    `grove:"facility_id,notnull"`
	Role            string    `grove:"role,notnull"`
	UserID          string    `grove:"user_id"`
	Permission      string    `grove:"permission"`
	Route           string    `grove:"route"`
	Decision        string    `grove:"decision,notnull"`
	Reason          string    `grove:"reason"`
	EvalTimeNs      int64     `grove:"eval_time_ns,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func entryToModel(e *decisionlog.Entry) *decisionLogModel {
	return &decisionLogModel{
		ID:         e.ID.String(),
		FacilityID: e.FacilityID,
		Role:       string(e.Role),
		UserID:     e.UserID,
		Permission: string(e.Permission),
		Route:      e.Route,
		Decision:   e.Decision,
		Reason:     e.Reason,
		EvalTimeNs: e.EvalTimeNs,
		CreatedAt:  e.CreatedAt,
	}
}

func entryFromModel(m *decisionLogModel) *decisionlog.Entry {
	did, _ := id.ParseDecisionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &decisionlog.Entry{
		ID:         did,
		FacilityID: m.FacilityID,
		Role:       catalog.Role(m.Role),
		UserID:     m.UserID,
		Permission: catalog.Permission(m.Permission),
		Route:      m.Route,
		Decision:   m.Decision,
		Reason:     m.Reason,
		EvalTimeNs: m.EvalTimeNs,
		CreatedAt:  m.CreatedAt,
	}
}
