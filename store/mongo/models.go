package mongo

import (
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
// Role grant model (one document per customized role)
// ──────────────────────────────────────────────────

type roleGrantModel struct {
	grove.BaseModel `grove:"table:gatehouse_role_grants"`
	ID              string    `grove:"id,pk"          bson:"_id"`
	FacilityID      string    `grove:"facility_id"    bson:"facility_id"`
	Role            string    `grove:"role"           bson:"role"`
	Permissions     []string  `grove:"permissions"    bson:"permissions"`
	UpdatedBy       string    `grove:"updated_by"     bson:"updated_by"`
	UpdatedAt       time.Time `grove:"updated_at"     bson:"updated_at"`
}

func grantDocID(facilityID string, r catalog.Role) string {
	return facilityID + ":" + string(r)
}

func matrixToModels(m *rolematrix.Matrix) []roleGrantModel {
	models := make([]roleGrantModel, 0, len(m.Grants))
	for r, set := range m.Grants {
		perms := make([]string, 0, len(set))
		for _, p := range set.Slice() {
			perms = append(perms, string(p))
		}
		models = append(models, roleGrantModel{
			ID:          grantDocID(m.FacilityID, r),
			FacilityID:  m.FacilityID,
			Role:        string(r),
			Permissions: perms,
			UpdatedBy:   m.UpdatedBy,
			UpdatedAt:   m.UpdatedAt,
		})
	}
	return models
}

// matrixFromModels rebuilds a matrix from its documents. Documents for roles
// no longer in the catalog and unknown permission tokens are dropped, so a
// corrupted document degrades that role to its default instead of failing
// checks.
func matrixFromModels(facilityID string, models []roleGrantModel) *rolematrix.Matrix {
	m := rolematrix.New(facilityID)
	for i := range models {
		r, err := catalog.ParseRole(models[i].Role)
		if err != nil {
			continue
		}
		set := make(catalog.Set, len(models[i].Permissions))
		for _, tok := range models[i].Permissions {
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
	ID              string    `grove:"id,pk"          bson:"_id"`
	FacilityID      string    `grove:"facility_id"    bson:"facility_id"`
	UserID          string    `grove:"user_id"        bson:"user_id"`
	Role            string    `grove:"role"           bson:"role"`
	Permission      string    `grove:"permission"     bson:"permission"`
	Granted         bool      `grove:"granted"        bson:"granted"`
	GrantedBy       string    `grove:"granted_by"     bson:"granted_by"`
	CreatedAt       time.Time `grove:"created_at"     bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"     bson:"updated_at"`
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
	ID              string    `grove:"id,pk"          bson:"_id"`
	FacilityID      string    `grove:"facility_id"    bson:"facility_id"`
	SessionID       string    `grove:"session_id"     bson:"session_id"`
	Role            string    `grove:"role"           bson:"role"`
	UserID          string    `grove:"user_id"        bson:"user_id"`
	UpdatedAt       time.Time `grove:"updated_at"     bson:"updated_at"`
}

func stateDocID(facilityID, sessionID string) string {
	return facilityID + ":" + sessionID
}

func stateToModel(st *session.State) *sessionStateModel {
	return &sessionStateModel{
		ID:         stateDocID(st.FacilityID, st.SessionID),
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
	ID              string    `grove:"id,pk"          bson:"_id"`
	FacilityID      string    `grove:"facility_id"    bson:"facility_id"`
	Role            string    `grove:"role"           bson:"role"`
	UserID          string    `grove:"user_id"        bson:"user_id"`
	Permission      string    `grove:"permission"     bson:"permission"`
	Route           string    `grove:"route"          bson:"route"`
	Decision        string    `grove:"decision"       bson:"decision"`
	Reason          string    `grove:"reason"         bson:"reason"`
	EvalTimeNs      int64     `grove:"eval_time_ns"   bson:"eval_time_ns"`
	CreatedAt       time.Time `grove:"created_at"     bson:"created_at"`
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
