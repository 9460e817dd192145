package rolematrix

import (
	"context"

	"github.com/pawdesk/gatehouse/catalog"
)

// Store defines persistence operations for custom role matrices.
//
// Writes are full replacements at the role-entry level: concurrent editors
// race as last-write-wins. Callers that need in-process serialization of
// read-modify-write sequences (updateRolePermission) must hold their own
// lock; the engine does.
type Store interface {
	// GetMatrix retrieves the custom matrix for a facility.
	// Returns ErrNotCustomized when the facility never customized roles.
	GetMatrix(ctx context.Context, facilityID string) (*Matrix, error)

	// SaveMatrix atomically replaces the facility's whole custom matrix.
	SaveMatrix(ctx context.Context, m *Matrix) error

	// DeleteRole removes the custom entry for one role, reverting it to
	// the catalog default. Removing an absent entry is a no-op.
	DeleteRole(ctx context.Context, facilityID string, r catalog.Role) error

	// DeleteMatrix clears the facility's entire custom matrix.
	DeleteMatrix(ctx context.Context, facilityID string) error
}
