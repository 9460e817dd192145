package gatehouse

import (
	"errors"
	"testing"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/session"
)

func TestSessionSwitchRoleReturnsFreshSet(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	s, err := NewSession(ctx, eng, "sess_1", catalog.RoleStaff)
	if err != nil {
		t.Fatal(err)
	}
	if s.Role() != catalog.RoleStaff {
		t.Fatalf("expected initial role staff, got %s", s.Role())
	}

	set, err := s.SwitchRole(ctx, catalog.RoleManager)
	if err != nil {
		t.Fatal(err)
	}
	if !set.Equal(catalog.DefaultPermissions(catalog.RoleManager)) {
		t.Fatal("switch must return the set resolved for the NEW role")
	}
	if s.Role() != catalog.RoleManager {
		t.Fatalf("expected active role manager, got %s", s.Role())
	}
}

func TestSessionPersistsAcrossInstances(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	s, err := NewSession(ctx, eng, "sess_1", catalog.RoleStaff)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SwitchRole(ctx, catalog.RoleAdmin); err != nil {
		t.Fatal(err)
	}

	// A new instance for the same session ID picks up the stored role,
	// not the initial one.
	s2, err := NewSession(ctx, eng, "sess_1", catalog.RoleStaff)
	if err != nil {
		t.Fatal(err)
	}
	if s2.Role() != catalog.RoleAdmin {
		t.Fatalf("expected persisted role admin, got %s", s2.Role())
	}
}

func TestSessionListenersNotifiedInOrder(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	s, err := NewSession(ctx, eng, "sess_1", catalog.RoleStaff)
	if err != nil {
		t.Fatal(err)
	}

	var order []string
	s.Subscribe(ListenerFunc(func(old, next session.State) {
		order = append(order, "first")
		if old.Role != catalog.RoleStaff || next.Role != catalog.RoleOwner {
			t.Errorf("listener saw wrong transition: %s -> %s", old.Role, next.Role)
		}
	}))
	s.Subscribe(ListenerFunc(func(_, _ session.State) {
		order = append(order, "second")
	}))

	if _, err := s.SwitchRole(ctx, catalog.RoleOwner); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected [first second], got %v", order)
	}
}

func TestSessionUnsubscribe(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	s, err := NewSession(ctx, eng, "sess_1", catalog.RoleStaff)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	unsubscribe := s.Subscribe(ListenerFunc(func(_, _ session.State) { calls++ }))

	if _, err := s.SwitchRole(ctx, catalog.RoleManager); err != nil {
		t.Fatal(err)
	}
	unsubscribe()
	if _, err := s.SwitchRole(ctx, catalog.RoleOwner); err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Fatalf("expected 1 notification before unsubscribe, got %d", calls)
	}
}

func TestSessionSetUser(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	err := eng.SetUserOverride(ctx, &override.Override{
		UserID:     "u1",
		Role:       catalog.RoleStaff,
		Permission: catalog.PermBillingManage,
		Granted:    true,
	})
	if err != nil {
		t.Fatal(err)
	}

	s, err := NewSession(ctx, eng, "sess_1", catalog.RoleStaff)
	if err != nil {
		t.Fatal(err)
	}

	set, err := s.SetUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !set.Has(catalog.PermBillingManage) {
		t.Fatal("expected u1's override grant in the returned set")
	}
	if s.UserID() != "u1" {
		t.Fatalf("expected active user u1, got %q", s.UserID())
	}

	// Clearing the user drops the override from resolution.
	set, err = s.SetUser(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if set.Has(catalog.PermBillingManage) {
		t.Fatal("expected role-only set after clearing the user")
	}
}

func TestSessionCloseIsTerminal(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	s, err := NewSession(ctx, eng, "sess_1", catalog.RoleStaff)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	// Close is idempotent.
	if err := s.Close(ctx); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}

	if _, err := s.SwitchRole(ctx, catalog.RoleOwner); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}

	if _, err := eng.SessionState(ctx, "sess_1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected persisted state removed, got %v", err)
	}
}

func TestSessionRefreshPicksUpExternalChange(t *testing.T) {
	ctx := testCtx()
	eng, s := newTestEngine(t)

	sess, err := NewSession(ctx, eng, "sess_1", catalog.RoleStaff)
	if err != nil {
		t.Fatal(err)
	}

	// Another process switches the role directly in the store.
	st := sess.State()
	st.Role = catalog.RoleAdmin
	if err := s.SaveState(ctx, &st); err != nil {
		t.Fatal(err)
	}

	notified := false
	sess.Subscribe(ListenerFunc(func(_, next session.State) {
		notified = true
		if next.Role != catalog.RoleAdmin {
			t.Errorf("expected refreshed role admin, got %s", next.Role)
		}
	}))

	if err := sess.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if sess.Role() != catalog.RoleAdmin {
		t.Fatalf("expected refreshed role admin, got %s", sess.Role())
	}
	if !notified {
		t.Fatal("expected listener notification on refreshed change")
	}
}
