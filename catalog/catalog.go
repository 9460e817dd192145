// Package catalog defines the closed sets of facility-portal roles and
// permissions, and the immutable default role→permission matrix.
//
// Roles carry no inherent rank; a role's privilege comes entirely from the
// permission set resolved for it. Permissions are atomic capability tokens
// and never imply one another.
package catalog

import (
	"errors"
	"fmt"
)

// Role is a facility-portal role. The set of valid roles is closed; values
// outside this file are rejected by ParseRole.
type Role string

const (
	// RoleOwner is the facility owner.
	RoleOwner Role = "owner"

	// RoleAdmin is a facility administrator.
	RoleAdmin Role = "admin"

	// RoleManager runs day-to-day operations.
	RoleManager Role = "manager"

	// RoleStaff is a care-staff member (groomers, sitters, vets).
	RoleStaff Role = "staff"

	// RoleFrontDesk handles check-ins, walk-ups, and phone bookings.
	RoleFrontDesk Role = "front_desk"
)

// Permission is an atomic capability token drawn from the fixed catalog below.
type Permission string

const (
	PermBookingsView  Permission = "bookings.view"
	PermBookingsManage Permission = "bookings.manage"

	PermBillingView   Permission = "billing.view"
	PermBillingManage Permission = "billing.manage"

	PermLoyaltyView   Permission = "loyalty.view"
	PermLoyaltyManage Permission = "loyalty.manage"

	PermPetsView   Permission = "pets.view"
	PermPetsManage Permission = "pets.manage"

	PermReportsView Permission = "reports.view"

	PermSettingsManage Permission = "settings.manage"

	PermUsersView   Permission = "users.view"
	PermUsersManage Permission = "users.manage"

	// PermUsersManagePermissions gates the permission-editing surface itself.
	PermUsersManagePermissions Permission = "users.manage.permissions"
)

var (
	// ErrUnknownRole is returned when a role token is outside the catalog.
	ErrUnknownRole = errors.New("catalog: unknown role")

	// ErrUnknownPermission is returned when a permission token is outside
	// the catalog.
	ErrUnknownPermission = errors.New("catalog: unknown permission")
)

// allRoles lists every role, in display order.
var allRoles = []Role{
	RoleOwner,
	RoleAdmin,
	RoleManager,
	RoleStaff,
	RoleFrontDesk,
}

// allPermissions lists every permission, in display order.
var allPermissions = []Permission{
	PermBookingsView,
	PermBookingsManage,
	PermBillingView,
	PermBillingManage,
	PermLoyaltyView,
	PermLoyaltyManage,
	PermPetsView,
	PermPetsManage,
	PermReportsView,
	PermSettingsManage,
	PermUsersView,
	PermUsersManage,
	PermUsersManagePermissions,
}

// defaultMatrix is the built-in role→permission matrix. Every role has an
// entry. The matrix is never mutated; callers receive copies.
var defaultMatrix = map[Role]Set{
	RoleOwner: SetOf(
		PermBookingsView, PermBookingsManage,
		PermBillingView, PermBillingManage,
		PermLoyaltyView, PermLoyaltyManage,
		PermPetsView, PermPetsManage,
		PermReportsView,
		PermSettingsManage,
		PermUsersView, PermUsersManage, PermUsersManagePermissions,
	),
	RoleAdmin: SetOf(
		PermBookingsView, PermBookingsManage,
		PermBillingView,
		PermLoyaltyView, PermLoyaltyManage,
		PermPetsView, PermPetsManage,
		PermReportsView,
		PermSettingsManage,
		PermUsersView, PermUsersManage, PermUsersManagePermissions,
	),
	RoleManager: SetOf(
		PermBookingsView, PermBookingsManage,
		PermBillingView,
		PermLoyaltyView, PermLoyaltyManage,
		PermPetsView, PermPetsManage,
		PermReportsView,
		PermUsersView,
	),
	RoleStaff: SetOf(
		PermBookingsView,
		PermLoyaltyView,
		PermPetsView, PermPetsManage,
	),
	RoleFrontDesk: SetOf(
		PermBookingsView, PermBookingsManage,
		PermBillingView,
		PermLoyaltyView,
		PermPetsView,
	),
}

// Roles returns every role in the catalog.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Permissions returns every permission in the catalog.
func Permissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// ValidRole reports whether r is in the catalog.
func ValidRole(r Role) bool {
	_, ok := defaultMatrix[r]
	return ok
}

// ValidPermission reports whether p is in the catalog.
func ValidPermission(p Permission) bool {
	for _, known := range allPermissions {
		if known == p {
			return true
		}
	}
	return false
}

// ParseRole validates an external role token against the closed catalog.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !ValidRole(r) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// ParsePermission validates an external permission token against the
// closed catalog.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !ValidPermission(p) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
	return p, nil
}

// DefaultPermissions returns a copy of the default permission set for a role.
// Unknown roles get an empty set; validation happens at the boundary via
// ParseRole, not here.
func DefaultPermissions(r Role) Set {
	s, ok := defaultMatrix[r]
	if !ok {
		return Set{}
	}
	return s.Clone()
}
