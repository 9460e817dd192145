package gatehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/pawdesk/gatehouse/catalog"
	"github.com/pawdesk/gatehouse/decisionlog"
	"github.com/pawdesk/gatehouse/override"
	"github.com/pawdesk/gatehouse/rolematrix"
	"github.com/pawdesk/gatehouse/store/memory"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	eng, err := NewEngine(append([]Option{WithStore(s)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, s
}

func testCtx() context.Context {
	return WithFacility(context.Background(), "fac_1")
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine()
	if !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}
}

func TestCheck_DefaultMatrix(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	// Staff hold pets.manage by default.
	result, err := eng.Check(ctx, &CheckRequest{Role: catalog.RoleStaff, Permission: catalog.PermPetsManage})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected allowed, got %s: %s", result.Decision, result.Reason)
	}
	if result.Decision != DecisionAllow {
		t.Fatalf("expected decision allow, got %s", result.Decision)
	}

	// Staff do not hold billing.manage by default.
	result, err = eng.Check(ctx, &CheckRequest{Role: catalog.RoleStaff, Permission: catalog.PermBillingManage})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected denied for billing.manage")
	}
	if result.Decision != DecisionDenyDefault {
		t.Fatalf("expected deny_default, got %s", result.Decision)
	}
}

func TestCheck_RequiresExactlyOneTarget(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	_, err := eng.Check(ctx, &CheckRequest{Role: catalog.RoleStaff})
	if !errors.Is(err, ErrInvalidCheck) {
		t.Fatalf("expected ErrInvalidCheck for neither target, got %v", err)
	}

	_, err = eng.Check(ctx, &CheckRequest{
		Role:       catalog.RoleStaff,
		Permission: catalog.PermPetsView,
		Route:      "/facility/dashboard",
	})
	if !errors.Is(err, ErrInvalidCheck) {
		t.Fatalf("expected ErrInvalidCheck for both targets, got %v", err)
	}
}

func TestCheck_RejectsUnknownTokens(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	_, err := eng.Check(ctx, &CheckRequest{Role: "superuser", Permission: catalog.PermPetsView})
	if !errors.Is(err, catalog.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}

	_, err = eng.Check(ctx, &CheckRequest{Role: catalog.RoleStaff, Permission: "pets.delete"})
	if !errors.Is(err, catalog.ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}
}

func TestCustomMatrixReplacesDefaultEntry(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	// Customize staff to billing.view only. The custom entry fully
	// replaces the default set, so default grants like pets.manage vanish.
	m := rolematrix.New("fac_1")
	m.SetPermissions(catalog.RoleStaff, catalog.SetOf(catalog.PermBillingView))
	if err := eng.SaveCustomMatrix(ctx, m); err != nil {
		t.Fatal(err)
	}

	allowed, err := eng.HasPermission(ctx, catalog.RoleStaff, catalog.PermBillingView, "")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected billing.view via custom matrix")
	}

	allowed, err = eng.HasPermission(ctx, catalog.RoleStaff, catalog.PermPetsManage, "")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("custom entry should fully replace the default set")
	}

	// Roles without a custom entry still resolve to their defaults.
	allowed, err = eng.HasPermission(ctx, catalog.RoleFrontDesk, catalog.PermBookingsManage, "")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("uncustomized role should keep its default set")
	}
}

func TestOverrideBeatsMatrix(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	// Grant beyond the role.
	err := eng.SetUserOverride(ctx, &override.Override{
		UserID:     "u1",
		Role:       catalog.RoleStaff,
		Permission: catalog.PermBillingManage,
		Granted:    true,
	})
	if err != nil {
		t.Fatal(err)
	}

	allowed, err := eng.HasPermission(ctx, catalog.RoleStaff, catalog.PermBillingManage, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected override grant to win over the default matrix")
	}

	// The same user's colleagues are unaffected.
	allowed, err = eng.HasPermission(ctx, catalog.RoleStaff, catalog.PermBillingManage, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("override must not leak to other users")
	}

	// Revoke below the role.
	err = eng.SetUserOverride(ctx, &override.Override{
		UserID:     "u1",
		Role:       catalog.RoleStaff,
		Permission: catalog.PermPetsManage,
		Granted:    false,
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := eng.Check(ctx, &CheckRequest{
		Role:       catalog.RoleStaff,
		UserID:     "u1",
		Permission: catalog.PermPetsManage,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected override revoke to win over the default matrix")
	}
	if result.Decision != DecisionDenyOverride {
		t.Fatalf("expected deny_override, got %s", result.Decision)
	}
}

func TestOverrideUpsertReplacesSameKey(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	for _, granted := range []bool{true, false, true} {
		err := eng.SetUserOverride(ctx, &override.Override{
			UserID:     "u1",
			Role:       catalog.RoleStaff,
			Permission: catalog.PermBillingManage,
			Granted:    granted,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	list, err := eng.UserOverrides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 override after repeated writes to the same key, got %d", len(list))
	}
	if !list[0].Granted {
		t.Fatal("expected last write to win")
	}
}

func TestResetRoleIsIdempotent(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	m := rolematrix.New("fac_1")
	m.SetPermissions(catalog.RoleStaff, catalog.SetOf(catalog.PermBillingView))
	if err := eng.SaveCustomMatrix(ctx, m); err != nil {
		t.Fatal(err)
	}

	if err := eng.ResetRolePermissions(ctx, catalog.RoleStaff); err != nil {
		t.Fatal(err)
	}
	// Second reset of an uncustomized role is a no-op, not an error.
	if err := eng.ResetRolePermissions(ctx, catalog.RoleStaff); err != nil {
		t.Fatalf("second reset should be a no-op, got %v", err)
	}

	allowed, err := eng.HasPermission(ctx, catalog.RoleStaff, catalog.PermPetsManage, "")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected defaults restored after reset")
	}
}

func TestResetAllClearsEverything(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	m := rolematrix.New("fac_1")
	m.SetPermissions(catalog.RoleStaff, catalog.SetOf(catalog.PermBillingView))
	if err := eng.SaveCustomMatrix(ctx, m); err != nil {
		t.Fatal(err)
	}
	err := eng.SetUserOverride(ctx, &override.Override{
		UserID: "u1", Role: catalog.RoleStaff, Permission: catalog.PermBillingManage, Granted: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := eng.ResetAllRolePermissions(ctx); err != nil {
		t.Fatal(err)
	}
	if err := eng.ResetAllUserOverrides(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.CustomMatrix(ctx); !errors.Is(err, rolematrix.ErrNotCustomized) {
		t.Fatalf("expected ErrNotCustomized after full reset, got %v", err)
	}
	list, err := eng.UserOverrides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no overrides after full reset, got %d", len(list))
	}
	allowed, err := eng.HasPermission(ctx, catalog.RoleStaff, catalog.PermBillingManage, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("expected pure defaults after full reset")
	}
}

func TestResetUserOverridesLeavesOthers(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	for _, userID := range []string{"u1", "u2"} {
		err := eng.SetUserOverride(ctx, &override.Override{
			UserID: userID, Role: catalog.RoleStaff, Permission: catalog.PermBillingManage, Granted: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := eng.ResetUserOverrides(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	list, err := eng.UserOverrides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].UserID != "u2" {
		t.Fatalf("expected only u2's override to survive, got %+v", list)
	}
}

func TestFacilityIsolation(t *testing.T) {
	eng, _ := newTestEngine(t)

	ctxA := WithFacility(context.Background(), "fac_a")
	ctxB := WithFacility(context.Background(), "fac_b")

	m := rolematrix.New("fac_a")
	m.SetPermissions(catalog.RoleStaff, catalog.SetOf(catalog.PermBillingManage))
	if err := eng.SaveCustomMatrix(ctxA, m); err != nil {
		t.Fatal(err)
	}

	allowed, err := eng.HasPermission(ctxA, catalog.RoleStaff, catalog.PermBillingManage, "")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected custom grant in facility A")
	}

	allowed, err = eng.HasPermission(ctxB, catalog.RoleStaff, catalog.PermBillingManage, "")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("facility B must not see facility A's customization")
	}
}

func TestEffectivePermissions(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	err := eng.SetUserOverride(ctx, &override.Override{
		UserID: "u1", Role: catalog.RoleFrontDesk, Permission: catalog.PermReportsView, Granted: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	set, err := eng.EffectivePermissions(ctx, catalog.RoleFrontDesk, "u1")
	if err != nil {
		t.Fatal(err)
	}
	want := catalog.DefaultPermissions(catalog.RoleFrontDesk)
	want.Add(catalog.PermReportsView)
	if !set.Equal(want) {
		t.Fatalf("effective set mismatch: got %v want %v", set.Slice(), want.Slice())
	}

	// Mutating the returned set must not poison later resolutions.
	set.Add(catalog.PermUsersManagePermissions)
	again, err := eng.EffectivePermissions(ctx, catalog.RoleFrontDesk, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Has(catalog.PermUsersManagePermissions) {
		t.Fatal("caller mutation leaked into the resolver")
	}
}

func TestCanManagePermissions(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	ok, err := eng.CanManagePermissions(ctx, catalog.RoleOwner, "")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("owner should manage permissions by default")
	}

	ok, err = eng.CanManagePermissions(ctx, catalog.RoleManager, "")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("manager should not manage permissions by default")
	}
}

func TestEnforce(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	err := eng.Enforce(ctx, &CheckRequest{Role: catalog.RoleOwner, Permission: catalog.PermBillingManage})
	if err != nil {
		t.Fatalf("expected no error for allowed check, got %v", err)
	}

	err = eng.Enforce(ctx, &CheckRequest{Role: catalog.RoleStaff, Permission: catalog.PermBillingManage})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestCheckEvalTime(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	result, err := eng.Check(ctx, &CheckRequest{Role: catalog.RoleStaff, Permission: catalog.PermPetsView})
	if err != nil {
		t.Fatal(err)
	}
	if result.EvalTimeNs <= 0 {
		t.Fatal("expected positive eval time")
	}
}

func TestCorruptedMatrixDegradesToDefaults(t *testing.T) {
	ctx := testCtx()
	eng, s := newTestEngine(t)

	// A stored matrix holding only tokens outside the catalog resolves
	// like no customization at all.
	m := rolematrix.New("fac_1")
	m.Grants[catalog.Role("ghost_role")] = catalog.SetOf("not.a.permission")
	if err := s.SaveMatrix(ctx, m); err != nil {
		t.Fatal(err)
	}

	allowed, err := eng.HasPermission(ctx, catalog.RoleStaff, catalog.PermPetsManage, "")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected defaults when stored customization is unusable")
	}
}

func TestAuditDecisions(t *testing.T) {
	ctx := testCtx()
	cfg := DefaultConfig()
	cfg.AuditDecisions = true
	cfg.CacheTTL = 0
	eng, _ := newTestEngine(t, WithConfig(cfg))

	if _, err := eng.Check(ctx, &CheckRequest{Role: catalog.RoleStaff, Permission: catalog.PermPetsView}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Check(ctx, &CheckRequest{Role: catalog.RoleStaff, Permission: catalog.PermBillingManage}); err != nil {
		t.Fatal(err)
	}

	logs, err := eng.DecisionLogs(ctx, &decisionlog.QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(logs))
	}
	// Newest first.
	if logs[0].Decision != string(DecisionDenyDefault) {
		t.Fatalf("expected newest entry to be the deny, got %s", logs[0].Decision)
	}
}
