package gatehouse

import (
	"context"

	"github.com/xraph/forge"
)

// facilityFromContext extracts the facility (tenant) scope. In a Forge app
// the facility is the org in forge.Scope; standalone callers set it with
// WithFacility.
func facilityFromContext(ctx context.Context) string {
	if s, ok := forge.ScopeFrom(ctx); ok {
		return s.OrgID()
	}
	return facilityIDFromContext(ctx)
}
