package gatehouse

import "context"

// Cache provides caching for authorization check results.
//
// Every mutating engine operation invalidates the affected facility, so a
// cache never outlives the state it was computed from within one process.
// Cross-process invalidation is the deployment's problem (see Session).
type Cache interface {
	// Get returns a cached check result, if available.
	Get(ctx context.Context, facilityID string, req *CheckRequest) (*CheckResult, bool)

	// Set stores a check result in the cache.
	Set(ctx context.Context, facilityID string, req *CheckRequest, result *CheckResult)

	// InvalidateFacility removes all cached results for a facility.
	InvalidateFacility(ctx context.Context, facilityID string)

	// InvalidateUser removes all cached results for a specific user.
	InvalidateUser(ctx context.Context, facilityID, userID string)
}
