package gatehouse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/session"
)

// SessionState returns the persisted state for a session in the current
// facility scope, without constructing a live Session.
func (e *Engine) SessionState(ctx context.Context, sessionID string) (*session.State, error) {
	return e.store.GetState(ctx, facilityFromContext(ctx), sessionID)
}

// EndSession removes the persisted state for a session.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	return e.store.DeleteState(ctx, facilityFromContext(ctx), sessionID)
}

// Listener is notified synchronously whenever a session's active context
// changes. Listeners run in registration order on the mutating goroutine;
// a slow listener delays the switch call itself.
type Listener interface {
	ContextChanged(old, new session.State)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(old, new session.State)

// ContextChanged implements Listener.
func (f ListenerFunc) ContextChanged(old, new session.State) { f(old, new) }

// Session tracks the active {role, user} pair for one portal session and
// notifies subscribers on change. It exists for the role-preview switcher:
// staff flip the portal into another role for testing or demos. It is
// advisory UI state only and must never stand in for authenticated
// identity on a production authorization boundary.
//
// A Session is created at portal-session start and torn down with Close.
// Exactly one instance should be live per session ID.
type Session struct {
	eng       *Engine
	sessionID string

	mu        sync.Mutex
	state     session.State
	listeners []Listener
	closed    bool
}

// NewSession loads the persisted state for sessionID, creating it with
// the given initial role when the store has none.
func NewSession(ctx context.Context, eng *Engine, sessionID string, initial catalog.Role) (*Session, error) {
	if !catalog.ValidRole(initial) {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownRole, initial)
	}
	facilityID := facilityFromContext(ctx)

	st, err := eng.store.GetState(ctx, facilityID, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		st = &session.State{
			SessionID:  sessionID,
			FacilityID: facilityID,
			Role:       initial,
			UpdatedAt:  time.Now().UTC(),
		}
		if err := eng.store.SaveState(ctx, st); err != nil {
			return nil, fmt.Errorf("gatehouse: create session state: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("gatehouse: load session state: %w", err)
	}

	return &Session{eng: eng, sessionID: sessionID, state: *st}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.sessionID }

// Role returns the active role.
func (s *Session) Role() catalog.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Role
}

// UserID returns the active user, or "" when none is set.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserID
}

// State returns a copy of the full active context.
func (s *Session) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener and returns its unsubscribe function.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	idx := len(s.listeners) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// SwitchRole changes the active role, persists the new state, invalidates
// cached resolutions, and notifies listeners. It returns the effective
// permission set freshly resolved for the new context, so callers
// re-resolve immediately instead of relying on any reload side effect.
func (s *Session) SwitchRole(ctx context.Context, r catalog.Role) (catalog.Set, error) {
	if !catalog.ValidRole(r) {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownRole, r)
	}
	return s.transition(ctx, func(st *session.State) { st.Role = r }, true)
}

// SetUser changes the active user identity, persists the new state,
// invalidates cached resolutions for the previous user, and notifies
// listeners. Like SwitchRole it returns the freshly-resolved set.
func (s *Session) SetUser(ctx context.Context, userID string) (catalog.Set, error) {
	return s.transition(ctx, func(st *session.State) { st.UserID = userID }, false)
}

// Refresh re-reads the persisted state, picking up changes made by other
// sessions in the same storage scope. Without an external change signal a
// session can otherwise run on stale data indefinitely.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	facilityID := s.state.FacilityID
	old := s.state
	s.mu.Unlock()

	st, err := s.eng.store.GetState(ctx, facilityID, s.sessionID)
	if err != nil {
		return fmt.Errorf("gatehouse: refresh session: %w", err)
	}

	s.mu.Lock()
	changed := st.Role != s.state.Role || st.UserID != s.state.UserID
	s.state = *st
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if changed {
		notify(listeners, old, *st)
	}
	return nil
}

// Close tears the session down: the persisted state is removed and all
// listeners are dropped. Further operations return ErrSessionClosed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.listeners = nil
	facilityID := s.state.FacilityID
	s.mu.Unlock()

	if err := s.eng.store.DeleteState(ctx, facilityID, s.sessionID); err != nil {
		return fmt.Errorf("gatehouse: close session: %w", err)
	}
	return nil
}

// HasPermission resolves a permission check against the active context.
func (s *Session) HasPermission(ctx context.Context, p catalog.Permission) (bool, error) {
	st := s.State()
	return s.eng.HasPermission(ctx, st.Role, p, st.UserID)
}

// CanAccessRoute resolves a route check against the active context.
func (s *Session) CanAccessRoute(ctx context.Context, route string) (bool, error) {
	st := s.State()
	return s.eng.CanAccessRoute(ctx, st.Role, route, st.UserID)
}

func (s *Session) transition(ctx context.Context, mutate func(*session.State), roleChange bool) (catalog.Set, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	old := s.state
	next := s.state
	mutate(&next)
	next.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.eng.store.SaveState(ctx, &next); err != nil {
		return nil, fmt.Errorf("gatehouse: save session state: %w", err)
	}

	s.mu.Lock()
	s.state = next
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	// Drop cached resolutions for the identity whose view just changed,
	// then hand back a fresh resolution for the new context.
	if old.UserID != "" {
		s.eng.invalidateUser(ctx, next.FacilityID, old.UserID)
	}
	if next.UserID != "" && next.UserID != old.UserID {
		s.eng.invalidateUser(ctx, next.FacilityID, next.UserID)
	}

	if s.eng.plugins != nil {
		if roleChange {
			s.eng.plugins.EmitRoleSwitched(ctx, &next)
		} else {
			s.eng.plugins.EmitUserSwitched(ctx, &next)
		}
	}

	notify(listeners, old, next)

	return s.eng.effectivePermissions(ctx, next.FacilityID, next.Role, next.UserID), nil
}

// snapshotListeners must be called with mu held.
func (s *Session) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func notify(listeners []Listener, old, next session.State) {
	for _, l := range listeners {
		l.ContextChanged(old, next)
	}
}
