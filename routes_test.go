package gatehouse

import (
	"testing"

	"github.com/pawdesk/gatehouse/catalog"
)

func TestRouteTableLongestPrefixWins(t *testing.T) {
	table := DefaultRouteTable()

	rule, ok := table.Match("/facility/dashboard/billing/invoices/inv_42")
	if !ok {
		t.Fatal("expected a match")
	}
	if rule.Prefix != "/facility/dashboard/billing/invoices" {
		t.Fatalf("expected the invoices rule, got %s", rule.Prefix)
	}

	rule, ok = table.Match("/facility/dashboard/billing")
	if !ok {
		t.Fatal("expected a match")
	}
	if rule.Prefix != "/facility/dashboard/billing" {
		t.Fatalf("expected the billing rule, got %s", rule.Prefix)
	}
}

func TestRouteTableSegmentBoundary(t *testing.T) {
	table := NewRouteTable([]RouteRule{
		{Prefix: "/billing", Required: []catalog.Permission{catalog.PermBillingView}},
	})

	if _, ok := table.Match("/billing"); !ok {
		t.Fatal("exact path should match")
	}
	if _, ok := table.Match("/billing/invoices"); !ok {
		t.Fatal("subpath should match")
	}
	if _, ok := table.Match("/billingx"); ok {
		t.Fatal("prefix must only match on a segment boundary")
	}
}

func TestRouteTableUnmappedDenied(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	result, err := eng.Check(ctx, &CheckRequest{Role: catalog.RoleOwner, Route: "/facility/unmapped"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("unmapped route must be denied even for the owner")
	}
	if result.Decision != DecisionDenyUnmappedRoute {
		t.Fatalf("expected deny_unmapped_route, got %s", result.Decision)
	}
}

func TestRouteRequiresAllPermissions(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	// The permissions settings page needs BOTH settings.manage and
	// users.manage.permissions.
	allowed, err := eng.CanAccessRoute(ctx, catalog.RoleAdmin, "/facility/dashboard/settings/permissions", "")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("admin holds both required permissions by default")
	}

	result, err := eng.Check(ctx, &CheckRequest{
		Role:  catalog.RoleManager,
		Route: "/facility/dashboard/settings/permissions",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("manager lacks settings.manage, route must deny")
	}
	if result.Decision != DecisionDenyMissingPerms {
		t.Fatalf("expected deny_missing_perms, got %s", result.Decision)
	}
}

func TestRouteReflectsOverrides(t *testing.T) {
	ctx := testCtx()
	eng, _ := newTestEngine(t)

	allowed, err := eng.CanAccessRoute(ctx, catalog.RoleStaff, "/facility/dashboard/reports", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("staff lack reports.view by default")
	}

	set, err := eng.EffectivePermissions(ctx, catalog.RoleStaff, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if set.Has(catalog.PermReportsView) {
		t.Fatal("sanity: staff default set should lack reports.view")
	}
}
