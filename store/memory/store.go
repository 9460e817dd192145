// Package memory provides an in-memory implementation of the Gatehouse
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/decisionlog"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/session"
)

// Compile-time interface checks.
var (
	_ rolematrix.Store  = (*Store)(nil)
	_ override.Store    = (*Store)(nil)
	_ session.Store     = (*Store)(nil)
	_ decisionlog.Store = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Gatehouse entities.
type Store struct {
	mu sync.RWMutex

	matrices  map[string]*rolematrix.Matrix  // facilityID -> matrix
	overrides map[string][]*override.Override // facilityID -> ordered list, oldest first
	states    map[string]*session.State      // facilityID/sessionID -> state
	decisions []*decisionlog.Entry           // append order, oldest first
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		matrices:  make(map[string]*rolematrix.Matrix),
		overrides: make(map[string][]*override.Override),
		states:    make(map[string]*session.State),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Role Matrix Store
// ──────────────────────────────────────────────────

func (s *Store) GetMatrix(_ context.Context, facilityID string) (*rolematrix.Matrix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matrices[facilityID]
	if !ok {
		return nil, fmt.Errorf("matrix for facility %s: %w", facilityID, rolematrix.ErrNotCustomized)
	}
	return m.Clone(), nil
}

func (s *Store) SaveMatrix(_ context.Context, m *rolematrix.Matrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matrices[m.FacilityID] = m.Clone()
	return nil
}

func (s *Store) DeleteRole(_ context.Context, facilityID string, r catalog.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matrices[facilityID]
	if !ok {
		return nil
	}
	delete(m.Grants, r)
	if len(m.Grants) == 0 {
		delete(s.matrices, facilityID)
	}
	return nil
}

func (s *Store) DeleteMatrix(_ context.Context, facilityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matrices, facilityID)
	return nil
}

// ──────────────────────────────────────────────────
// Override Store
// ──────────────────────────────────────────────────

func (s *Store) ListOverrides(_ context.Context, filter *override.ListFilter) ([]*override.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var source []*override.Override
	if filter != nil && filter.FacilityID != "" {
		source = s.overrides[filter.FacilityID]
	} else {
		for _, list := range s.overrides {
			source = append(source, list...)
		}
	}

	result := make([]*override.Override, 0, len(source))
	for _, o := range source {
		if filter != nil {
			if filter.UserID != "" && o.UserID != filter.UserID {
				continue
			}
			if filter.Granted != nil && o.Granted != *filter.Granted {
				continue
			}
		}
		result = append(result, copyOverride(o))
	}
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountOverrides(ctx context.Context, filter *override.ListFilter) (int64, error) {
	var unpaged *override.ListFilter
	if filter != nil {
		f := *filter
		f.Limit, f.Offset = 0, 0
		unpaged = &f
	}
	list, err := s.ListOverrides(ctx, unpaged)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) SaveOverrides(_ context.Context, facilityID string, list []*override.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]*override.Override, 0, len(list))
	for _, o := range list {
		copied = append(copied, copyOverride(o))
	}
	s.overrides[facilityID] = copied
	return nil
}

func (s *Store) UpsertOverride(_ context.Context, o *override.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.overrides[o.FacilityID]
	for i, existing := range list {
		if existing.UserID == o.UserID && existing.Permission == o.Permission {
			updated := copyOverride(o)
			updated.ID = existing.ID
			updated.CreatedAt = existing.CreatedAt
			list[i] = updated
			return nil
		}
	}
	s.overrides[o.FacilityID] = append(list, copyOverride(o))
	return nil
}

func (s *Store) DeleteOverridesByUser(_ context.Context, facilityID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.overrides[facilityID]
	kept := list[:0]
	for _, o := range list {
		if o.UserID != userID {
			kept = append(kept, o)
		}
	}
	if len(kept) == 0 {
		delete(s.overrides, facilityID)
	} else {
		s.overrides[facilityID] = kept
	}
	return nil
}

func (s *Store) DeleteOverrides(_ context.Context, facilityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, facilityID)
	return nil
}

// ──────────────────────────────────────────────────
// Session Store
// ──────────────────────────────────────────────────

func (s *Store) GetState(_ context.Context, facilityID, sessionID string) (*session.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[stateKey(facilityID, sessionID)]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrNotFound)
	}
	c := *st
	return &c, nil
}

func (s *Store) SaveState(_ context.Context, st *session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *st
	s.states[stateKey(st.FacilityID, st.SessionID)] = &c
	return nil
}

func (s *Store) DeleteState(_ context.Context, facilityID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, stateKey(facilityID, sessionID))
	return nil
}

// ──────────────────────────────────────────────────
// Decision Log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateEntry(_ context.Context, e *decisionlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *e
	s.decisions = append(s.decisions, &c)
	return nil
}

func (s *Store) QueryEntries(_ context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Newest first: iterate the append-ordered slice in reverse.
	result := make([]*decisionlog.Entry, 0, len(s.decisions))
	for i := len(s.decisions) - 1; i >= 0; i-- {
		e := s.decisions[i]
		if !matchEntry(e, filter) {
			continue
		}
		c := *e
		result = append(result, &c)
	}
	var opts pagOpts
	if filter != nil {
		opts = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, opts), nil
}

func (s *Store) CountEntries(_ context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, e := range s.decisions {
		if matchEntry(e, filter) {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteEntriesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	kept := s.decisions[:0]
	for _, e := range s.decisions {
		if e.CreatedAt.Before(cutoff) {
			count++
			continue
		}
		kept = append(kept, e)
	}
	s.decisions = kept
	return count, nil
}

func (s *Store) DeleteEntriesByFacility(_ context.Context, facilityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.decisions[:0]
	for _, e := range s.decisions {
		if e.FacilityID != facilityID {
			kept = append(kept, e)
		}
	}
	s.decisions = kept
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func stateKey(facilityID, sessionID string) string {
	return facilityID + "/" + sessionID
}

func copyOverride(o *override.Override) *override.Override {
	c := *o
	return &c
}

func matchEntry(e *decisionlog.Entry, filter *decisionlog.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.FacilityID != "" && e.FacilityID != filter.FacilityID {
		return false
	}
	if filter.UserID != "" && e.UserID != filter.UserID {
		return false
	}
	if filter.Role != "" && string(e.Role) != filter.Role {
		return false
	}
	if filter.Decision != "" && e.Decision != filter.Decision {
		return false
	}
	if filter.After != nil && e.CreatedAt.Before(*filter.After) {
		return false
	}
	if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
		return false
	}
	return true
}

type pagOpts struct{ limit, offset int }

func paginationOpts(f *override.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset >= len(items) && p.offset > 0 {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
