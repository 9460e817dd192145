package catalog_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pawdesk/gatehouse/catalog"
)

func TestEveryRoleHasDefaultEntry(t *testing.T) {
	for _, r := range catalog.Roles() {
		if len(catalog.DefaultPermissions(r)) == 0 {
			t.Errorf("role %s has an empty default set", r)
		}
	}
}

func TestOwnerHoldsEveryPermission(t *testing.T) {
	set := catalog.DefaultPermissions(catalog.RoleOwner)
	for _, p := range catalog.Permissions() {
		if !set.Has(p) {
			t.Errorf("owner default set lacks %s", p)
		}
	}
}

func TestParseRejectsUnknownTokens(t *testing.T) {
	if _, err := catalog.ParseRole("janitor"); !errors.Is(err, catalog.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := catalog.ParsePermission("pets.teleport"); !errors.Is(err, catalog.ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}

	r, err := catalog.ParseRole("front_desk")
	if err != nil {
		t.Fatal(err)
	}
	if r != catalog.RoleFrontDesk {
		t.Fatalf("expected front_desk, got %s", r)
	}
}

func TestDefaultPermissionsReturnsCopy(t *testing.T) {
	a := catalog.DefaultPermissions(catalog.RoleStaff)
	a.Add(catalog.PermBillingManage)

	b := catalog.DefaultPermissions(catalog.RoleStaff)
	if b.Has(catalog.PermBillingManage) {
		t.Fatal("mutating a returned set leaked into the default matrix")
	}
}

func TestDefaultPermissionsUnknownRoleEmpty(t *testing.T) {
	if len(catalog.DefaultPermissions(catalog.Role("ghost"))) != 0 {
		t.Fatal("unknown role should resolve to an empty set")
	}
}

func TestSetOperations(t *testing.T) {
	s := catalog.SetOf(catalog.PermPetsView, catalog.PermPetsManage)

	if !s.HasAll(catalog.PermPetsView, catalog.PermPetsManage) {
		t.Fatal("expected both permissions present")
	}
	if s.HasAll(catalog.PermPetsView, catalog.PermBillingView) {
		t.Fatal("HasAll must fail on a missing permission")
	}

	clone := s.Clone()
	clone.Remove(catalog.PermPetsView)
	if !s.Has(catalog.PermPetsView) {
		t.Fatal("clone mutation leaked into the original")
	}
	if s.Equal(clone) {
		t.Fatal("sets of different size must not be equal")
	}
}

func TestSetJSONDropsUnknownTokens(t *testing.T) {
	raw := []byte(`["pets.view","pets.teleport","billing.view"]`)

	var s catalog.Set
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatal(err)
	}
	if !s.Equal(catalog.SetOf(catalog.PermPetsView, catalog.PermBillingView)) {
		t.Fatalf("expected unknown tokens dropped, got %v", s.Slice())
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	// Sorted output.
	if string(out) != `["billing.view","pets.view"]` {
		t.Fatalf("unexpected JSON: %s", out)
	}
}
