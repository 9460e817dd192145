// Package sqlite provides a SQLite implementation of the Gatehouse
// composite store using grove ORM with Go-based migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/decisionlog"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/session"
	"github.com/pawdesk/gatehouse/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of the composite Gatehouse store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("gatehouse/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("gatehouse/sqlite: migration failed: %w", err)
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Role matrix operations
// ──────────────────────────────────────────────────

func (s *Store) GetMatrix(ctx context.Context, facilityID string) (*rolematrix.Matrix, error) {
	var models []roleGrantModel
	err := s.sdb.NewSelect(&models).
		Where("facility_id = ?", facilityID).
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
		m.UpdatedAt = time.Now().UTC()
	}
	models, err := matrixToModels(m)
	if err != nil {
		return fmt.Errorf("gatehouse: save matrix: %w", err)
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gatehouse: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.NewDelete((*roleGrantModel)(nil)).
		Where("facility_id = ?", m.FacilityID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: clear matrix: %w", err)
	}

	if len(models) > 0 {
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("gatehouse: save matrix: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gatehouse: commit tx: %w", err)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, facilityID string, r catalog.Role) error {
	_, err := s.sdb.NewDelete((*roleGrantModel)(nil)).
		Where("facility_id = ?", facilityID).
		Where("role = ?", string(r)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: delete role grant: %w", err)
	}
	return nil
}

func (s *Store) DeleteMatrix(ctx context.Context, facilityID string) error {
	_, err := s.sdb.NewDelete((*roleGrantModel)(nil)).
		Where("facility_id = ?", facilityID).
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
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.FacilityID != "" {
			q = q.Where("facility_id = ?", filter.FacilityID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Granted != nil {
			q = q.Where("granted = ?", *filter.Granted)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
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
	q := s.sdb.NewSelect((*overrideModel)(nil))
	if filter != nil {
		if filter.FacilityID != "" {
			q = q.Where("facility_id = ?", filter.FacilityID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Granted != nil {
			q = q.Where("granted = ?", *filter.Granted)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: count overrides: %w", err)
	}
	return count, nil
}

func (s *Store) SaveOverrides(ctx context.Context, facilityID string, list []*override.Override) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gatehouse: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.NewDelete((*overrideModel)(nil)).
		Where("facility_id = ?", facilityID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: clear overrides: %w", err)
	}

	if len(list) > 0 {
		models := make([]overrideModel, len(list))
		for i, o := range list {
			models[i] = *overrideToModel(o)
		}
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("gatehouse: save overrides: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gatehouse: commit tx: %w", err)
	}
	return nil
}

func (s *Store) UpsertOverride(ctx context.Context, o *override.Override) error {
	m := overrideToModel(o)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(facility_id, user_id, permission) DO UPDATE SET granted = EXCLUDED.granted, role = EXCLUDED.role, granted_by = EXCLUDED.granted_by, updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: upsert override: %w", err)
	}
	return nil
}

func (s *Store) DeleteOverridesByUser(ctx context.Context, facilityID, userID string) error {
	_, err := s.sdb.NewDelete((*overrideModel)(nil)).
		Where("facility_id = ?", facilityID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: delete overrides by user: %w", err)
	}
	return nil
}

func (s *Store) DeleteOverrides(ctx context.Context, facilityID string) error {
	_, err := s.sdb.NewDelete((*overrideModel)(nil)).
		Where("facility_id = ?", facilityID).
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
	m := new(sessionStateModel)
	err := s.sdb.NewSelect(m).
		Where("facility_id = ?", facilityID).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrNotFound)
		}
		return nil, fmt.Errorf("gatehouse: get session state: %w", err)
	}
	return stateFromModel(m), nil
}

func (s *Store) SaveState(ctx context.Context, st *session.State) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	m := stateToModel(st)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(facility_id, session_id) DO UPDATE SET role = EXCLUDED.role, user_id = EXCLUDED.user_id, updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: save session state: %w", err)
	}
	return nil
}

func (s *Store) DeleteState(ctx context.Context, facilityID, sessionID string) error {
	_, err := s.sdb.NewDelete((*sessionStateModel)(nil)).
		Where("facility_id = ?", facilityID).
		Where("session_id = ?", sessionID).
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
		e.CreatedAt = time.Now().UTC()
	}
	m := entryToModel(e)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("gatehouse: create decision log: %w", err)
	}
	return nil
}

func (s *Store) QueryEntries(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	var models []decisionLogModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.FacilityID != "" {
			q = q.Where("facility_id = ?", filter.FacilityID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Role != "" {
			q = q.Where("role = ?", filter.Role)
		}
		if filter.Decision != "" {
			q = q.Where("decision = ?", filter.Decision)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
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
	q := s.sdb.NewSelect((*decisionLogModel)(nil))
	if filter != nil {
		if filter.FacilityID != "" {
			q = q.Where("facility_id = ?", filter.FacilityID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Role != "" {
			q = q.Where("role = ?", filter.Role)
		}
		if filter.Decision != "" {
			q = q.Where("decision = ?", filter.Decision)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: count decision logs: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*decisionLogModel)(nil)).
		Where("created_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: purge decision logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("gatehouse: purge decision logs rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteEntriesByFacility(ctx context.Context, facilityID string) error {
	_, err := s.sdb.NewDelete((*decisionLogModel)(nil)).
		Where("facility_id = ?", facilityID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gatehouse: delete decision logs by facility: %w", err)
	}
	return nil
}
