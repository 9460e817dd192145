// Package rolematrix defines the facility-level Custom Role-Permission
// Matrix entity and its store interface.
//
// A facility that never customized its roles has no matrix at all; stores
// signal that with ErrNotCustomized and resolution falls back to the
// catalog defaults. When a matrix entry exists for a role it fully replaces
// that role's default set, it is never merged with it.
package rolematrix

import (
	"errors"
	"time"

	"github.com/pawdesk/gatehouse/catalog"
)

// ErrNotCustomized is returned when a facility has no custom matrix (or no
// custom entry for a specific role).
var ErrNotCustomized = errors.New("rolematrix: not customized")

// Matrix is a facility's customized role→permission mapping. Only roles
// present in Grants are customized; absent roles keep their defaults.
type Matrix struct {
	FacilityID string                       `json:"facility_id"`
	Grants     map[catalog.Role]catalog.Set `json:"grants"`
	UpdatedBy  string                       `json:"updated_by,omitempty"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}

// New returns an empty matrix for a facility.
func New(facilityID string) *Matrix {
	return &Matrix{
		FacilityID: facilityID,
		Grants:     make(map[catalog.Role]catalog.Set),
	}
}

// PermissionsFor returns the customized set for a role, if one exists.
func (m *Matrix) PermissionsFor(r catalog.Role) (catalog.Set, bool) {
	s, ok := m.Grants[r]
	if !ok {
		return nil, false
	}
	return s, true
}

// SetPermissions replaces the customized set for a role.
func (m *Matrix) SetPermissions(r catalog.Role, s catalog.Set) {
	if m.Grants == nil {
		m.Grants = make(map[catalog.Role]catalog.Set)
	}
	m.Grants[r] = s.Clone()
}

// Clone returns an independent copy of the matrix.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{
		FacilityID: m.FacilityID,
		Grants:     make(map[catalog.Role]catalog.Set, len(m.Grants)),
		UpdatedBy:  m.UpdatedBy,
		UpdatedAt:  m.UpdatedAt,
	}
	for r, s := range m.Grants {
		out.Grants[r] = s.Clone()
	}
	return out
}
