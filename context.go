package gatehouse

import "context"

type contextKey int

const ctxKeyFacilityID contextKey = iota

// WithFacility returns a context carrying the facility ID.
// Use this for standalone mode (without Forge).
func WithFacility(ctx context.Context, facilityID string) context.Context {
	return context.WithValue(ctx, ctxKeyFacilityID, facilityID)
}

func facilityIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyFacilityID).(string)
	if !ok {
		return ""
	}
	return v
}
