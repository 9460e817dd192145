package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/decisionlog"
	"github.com/pawdesk/gatehouse/id"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/session"
)

func TestMatrixRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.GetMatrix(ctx, "fac_1"); !errors.Is(err, rolematrix.ErrNotCustomized) {
		t.Fatalf("expected ErrNotCustomized, got %v", err)
	}

	m := rolematrix.New("fac_1")
	m.SetPermissions(catalog.RoleStaff, catalog.SetOf(catalog.PermBookingsView, catalog.PermPetsView))
	if err := s.SaveMatrix(ctx, m); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMatrix(ctx, "fac_1")
	if err != nil {
		t.Fatal(err)
	}
	set, ok := got.PermissionsFor(catalog.RoleStaff)
	if !ok || !set.Has(catalog.PermBookingsView) {
		t.Fatalf("unexpected staff set: %v", set)
	}

	// Mutating the returned matrix must not leak into the store.
	set.Add(catalog.PermBillingManage)
	got2, _ := s.GetMatrix(ctx, "fac_1")
	if s2, _ := got2.PermissionsFor(catalog.RoleStaff); s2.Has(catalog.PermBillingManage) {
		t.Fatal("store returned shared state")
	}
}

func TestDeleteRoleDropsEmptyMatrix(t *testing.T) {
	ctx := context.Background()
	s := New()

	m := rolematrix.New("fac_1")
	m.SetPermissions(catalog.RoleStaff, catalog.SetOf(catalog.PermBookingsView))
	if err := s.SaveMatrix(ctx, m); err != nil {
		t.Fatal(err)
	}

	// Deleting an absent role is a no-op.
	if err := s.DeleteRole(ctx, "fac_1", catalog.RoleManager); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRole(ctx, "fac_1", catalog.RoleStaff); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetMatrix(ctx, "fac_1"); !errors.Is(err, rolematrix.ErrNotCustomized) {
		t.Fatalf("expected ErrNotCustomized after last role removed, got %v", err)
	}

	// Deleting for an unknown facility is a no-op too.
	if err := s.DeleteRole(ctx, "fac_unknown", catalog.RoleStaff); err != nil {
		t.Fatal(err)
	}
}

func TestUpsertOverrideReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	s := New()

	o := &override.Override{
		ID:         id.NewOverrideID(),
		FacilityID: "fac_1",
		UserID:     "usr_1",
		Role:       catalog.RoleStaff,
		Permission: catalog.PermReportsView,
		Granted:    true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.UpsertOverride(ctx, o); err != nil {
		t.Fatal(err)
	}

	// Same key, flipped value: list must not grow and the original ID sticks.
	o2 := &override.Override{
		ID:         id.NewOverrideID(),
		FacilityID: "fac_1",
		UserID:     "usr_1",
		Permission: catalog.PermReportsView,
		Granted:    false,
	}
	if err := s.UpsertOverride(ctx, o2); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListOverrides(ctx, &override.ListFilter{FacilityID: "fac_1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 override, got %d", len(list))
	}
	if list[0].Granted {
		t.Fatal("expected Granted=false after upsert")
	}
	if list[0].ID != o.ID {
		t.Fatal("upsert must preserve the original ID")
	}

	// Different permission, same user: appends.
	o3 := &override.Override{
		ID:         id.NewOverrideID(),
		FacilityID: "fac_1",
		UserID:     "usr_1",
		Permission: catalog.PermBillingView,
		Granted:    true,
	}
	if err := s.UpsertOverride(ctx, o3); err != nil {
		t.Fatal(err)
	}
	n, err := s.CountOverrides(ctx, &override.ListFilter{FacilityID: "fac_1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 overrides, got %d", n)
	}
}

func TestDeleteOverridesByUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, o := range []*override.Override{
		{ID: id.NewOverrideID(), FacilityID: "fac_1", UserID: "usr_1", Permission: catalog.PermReportsView, Granted: true},
		{ID: id.NewOverrideID(), FacilityID: "fac_1", UserID: "usr_2", Permission: catalog.PermReportsView, Granted: true},
	} {
		if err := s.UpsertOverride(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeleteOverridesByUser(ctx, "fac_1", "usr_1"); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListOverrides(ctx, &override.ListFilter{FacilityID: "fac_1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].UserID != "usr_2" {
		t.Fatalf("unexpected survivors: %v", list)
	}

	// Idempotent.
	if err := s.DeleteOverridesByUser(ctx, "fac_1", "usr_1"); err != nil {
		t.Fatal(err)
	}
}

func TestSessionStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.GetState(ctx, "fac_1", "sess_1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	st := &session.State{SessionID: "sess_1", FacilityID: "fac_1", Role: catalog.RoleManager, UserID: "usr_1"}
	if err := s.SaveState(ctx, st); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetState(ctx, "fac_1", "sess_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != catalog.RoleManager || got.UserID != "usr_1" {
		t.Fatalf("unexpected state: %+v", got)
	}

	if err := s.DeleteState(ctx, "fac_1", "sess_1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetState(ctx, "fac_1", "sess_1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDecisionLogQueryAndPurge(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		e := &decisionlog.Entry{
			ID:         id.NewDecisionID(),
			FacilityID: "fac_1",
			Role:       catalog.RoleStaff,
			Decision:   "allow",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.QueryEntries(ctx, &decisionlog.QueryFilter{FacilityID: "fac_1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	// Newest first.
	if list[0].CreatedAt.Before(list[1].CreatedAt) {
		t.Fatal("entries not in newest-first order")
	}

	removed, err := s.DeleteEntriesBefore(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	n, err := s.CountEntries(ctx, &decisionlog.QueryFilter{FacilityID: "fac_1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry left, got %d", n)
	}
}
