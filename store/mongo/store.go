// Package mongo provides a MongoDB implementation of the Gatehouse
// composite store backed by Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/decisionlog"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/session"
	"github.com/pawdesk/gatehouse/store"
)

// Collection name constants.
const (
	colRoleGrants    = "gatehouse_role_grants"
	colUserOverrides = "gatehouse_user_overrides"
	colSessionStates = "gatehouse_session_states"
	colDecisionLogs  = "gatehouse_decision_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite Gatehouse store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all gatehouse collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("gatehouse/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all gatehouse collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colRoleGrants: {
			{Keys: bson.D{{Key: "facility_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "facility_id", Value: 1}, {Key: "role", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colUserOverrides: {
			{
				Keys: bson.D{
					{Key: "facility_id", Value: 1},
					{Key: "user_id", Value: 1},
					{Key: "permission", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "facility_id", Value: 1}}},
			{Keys: bson.D{{Key: "facility_id", Value: 1}, {Key: "user_id", Value: 1}}},
		},
		colSessionStates: {
			{Keys: bson.D{{Key: "facility_id", Value: 1}}},
		},
		colDecisionLogs: {
			{Keys: bson.D{{Key: "facility_id", Value: 1}}},
			{Keys: bson.D{{Key: "facility_id", Value: 1}, {Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "facility_id", Value: 1}, {Key: "decision", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Role matrix operations
// ──────────────────────────────────────────────────

func (s *Store) GetMatrix(ctx context.Context, facilityID string) (*rolematrix.Matrix, error) {
	var models []roleGrantModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"facility_id": facilityID}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gatehouse: get matrix: %w", err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("matrix for facility %s: %w", facilityID, rolematrix.ErrNotCustomized)
	}
	return matrixFromModels(facilityID, models), nil
}

func (s *Store) SaveMatrix(ctx context.Context, m *rolematrix.Matrix) error {
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now()
	}
	_, err := s.mdb.NewDelete((*roleGrantModel)(nil)).
		Many().
		Filter(bson.M{"facility_id": m.FacilityID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: clear matrix: %w", err)
	}

	models := matrixToModels(m)
	if len(models) > 0 {
		if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("gatehouse: save matrix: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, facilityID string, r catalog.Role) error {
	_, err := s.mdb.NewDelete((*roleGrantModel)(nil)).
		Filter(bson.M{"_id": grantDocID(facilityID, r)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: delete role grant: %w", err)
	}
	return nil
}

func (s *Store) DeleteMatrix(ctx context.Context, facilityID string) error {
	_, err := s.mdb.NewDelete((*roleGrantModel)(nil)).
		Many().
		Filter(bson.M{"facility_id": facilityID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: delete matrix: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Override operations
// ──────────────────────────────────────────────────

func (s *Store) ListOverrides(ctx context.Context, filter *override.ListFilter) ([]*override.Override, error) {
	var models []overrideModel
	f := bson.M{}
	if filter != nil {
		if filter.FacilityID != "" {
			f["facility_id"] = filter.FacilityID
		}
		if filter.UserID != "" {
			f["user_id"] = filter.UserID
		}
		if filter.Granted != nil {
			f["granted"] = *filter.Granted
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gatehouse: list overrides: %w", err)
	}
	result := make([]*override.Override, len(models))
	for i := range models {
		result[i] = overrideFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountOverrides(ctx context.Context, filter *override.ListFilter) (int64, error) {
	f := bson.M{}
	if filter != nil {
		if filter.FacilityID != "" {
			f["facility_id"] = filter.FacilityID
		}
		if filter.UserID != "" {
			f["user_id"] = filter.UserID
		}
		if filter.Granted != nil {
			f["granted"] = *filter.Granted
		}
	}
	count, err := s.mdb.NewFind((*overrideModel)(nil)).
		Filter(f).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: count overrides: %w", err)
	}
	return count, nil
}

func (s *Store) SaveOverrides(ctx context.Context, facilityID string, list []*override.Override) error {
	_, err := s.mdb.NewDelete((*overrideModel)(nil)).
		Many().
		Filter(bson.M{"facility_id": facilityID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: clear overrides: %w", err)
	}

	if len(list) > 0 {
		models := make([]overrideModel, len(list))
		for i, o := range list {
			models[i] = *overrideToModel(o)
		}
		if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("gatehouse: save overrides: %w", err)
		}
	}
	return nil
}

func (s *Store) UpsertOverride(ctx context.Context, o *override.Override) error {
	// Look up the existing document so its identity survives the upsert.
	var existing overrideModel
	err := s.mdb.NewFind(&existing).
		Filter(bson.M{
			"facility_id": o.FacilityID,
			"user_id":     o.UserID,
			"permission":  string(o.Permission),
		}).
		Scan(ctx)
	switch {
	case err == nil:
		m := overrideToModel(o)
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
		res, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": existing.ID}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("gatehouse: upsert override: %w", err)
		}
		if res.MatchedCount() == 0 {
			return fmt.Errorf("gatehouse: upsert override: document vanished")
		}
		return nil
	case isNoDocuments(err):
		m := overrideToModel(o)
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("gatehouse: upsert override: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("gatehouse: upsert override: %w", err)
	}
}

func (s *Store) DeleteOverridesByUser(ctx context.Context, facilityID, userID string) error {
	_, err := s.mdb.NewDelete((*overrideModel)(nil)).
		Many().
		Filter(bson.M{"facility_id": facilityID, "user_id": userID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: delete overrides by user: %w", err)
	}
	return nil
}

func (s *Store) DeleteOverrides(ctx context.Context, facilityID string) error {
	_, err := s.mdb.NewDelete((*overrideModel)(nil)).
		Many().
		Filter(bson.M{"facility_id": facilityID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: delete overrides: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Session state operations
// ──────────────────────────────────────────────────

func (s *Store) GetState(ctx context.Context, facilityID, sessionID string) (*session.State, error) {
	var m sessionStateModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": stateDocID(facilityID, sessionID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrNotFound)
		}
		return nil, fmt.Errorf("gatehouse: get session state: %w", err)
	}
	return stateFromModel(&m), nil
}

func (s *Store) SaveState(ctx context.Context, st *session.State) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = now()
	}
	m := stateToModel(st)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: save session state: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("gatehouse: save session state: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteState(ctx context.Context, facilityID, sessionID string) error {
	_, err := s.mdb.NewDelete((*sessionStateModel)(nil)).
		Filter(bson.M{"_id": stateDocID(facilityID, sessionID)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: delete session state: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Decision log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateEntry(ctx context.Context, e *decisionlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	m := entryToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("gatehouse: create decision log: %w", err)
	}
	return nil
}

func (s *Store) QueryEntries(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	var models []decisionLogModel
	f := entryFilter(filter)
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gatehouse: query decision logs: %w", err)
	}
	result := make([]*decisionlog.Entry, len(models))
	for i := range models {
		result[i] = entryFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountEntries(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*decisionLogModel)(nil)).
		Filter(entryFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: count decision logs: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*decisionLogModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": cutoff}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: purge decision logs: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteEntriesByFacility(ctx context.Context, facilityID string) error {
	_, err := s.mdb.NewDelete((*decisionLogModel)(nil)).
		Many().
		Filter(bson.M{"facility_id": facilityID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: delete decision logs by facility: %w", err)
	}
	return nil
}

func entryFilter(filter *decisionlog.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.FacilityID != "" {
		f["facility_id"] = filter.FacilityID
	}
	if filter.UserID != "" {
		f["user_id"] = filter.UserID
	}
	if filter.Role != "" {
		f["role"] = filter.Role
	}
	if filter.Decision != "" {
		f["decision"] = filter.Decision
	}
	created := bson.M{}
	if filter.After != nil {
		created["$gte"] = *filter.After
	}
	if filter.Before != nil {
		created["$lte"] = *filter.Before
	}
	if len(created) > 0 {
		f["created_at"] = created
	}
	return f
}
