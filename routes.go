package gatehouse

import (
	"sort"
	"strings"

	"github.com/pawdesk/gatehouse/catalog"
)

// RouteRule maps a route path prefix to the permissions required to
// access anything under it. A rule with several permissions requires ALL
// of them.
type RouteRule struct {
	Prefix   string               `json:"prefix"`
	Required []catalog.Permission `json:"required"`
}

// RouteTable is an immutable set of route rules matched by longest prefix.
// Paths with no matching rule are denied (fail-closed); the table never
// has an allow-by-default entry.
type RouteTable struct {
	rules []RouteRule // sorted by prefix length, longest first
}

// NewRouteTable builds a table from the given rules.
func NewRouteTable(rules []RouteRule) *RouteTable {
	sorted := make([]RouteRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &RouteTable{rules: sorted}
}

// Match returns the longest-prefix rule for a path, if any. A prefix
// matches on a path-segment boundary: "/billing" matches "/billing" and
// "/billing/invoices" but not "/billingx".
func (t *RouteTable) Match(path string) (RouteRule, bool) {
	for _, r := range t.rules {
		if path == r.Prefix {
			return r, true
		}
		if strings.HasPrefix(path, r.Prefix+"/") {
			return r, true
		}
	}
	return RouteRule{}, false
}

// Rules returns a copy of the table's rules, longest prefix first.
func (t *RouteTable) Rules() []RouteRule {
	out := make([]RouteRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// DefaultRouteTable returns the built-in facility-portal route map.
func DefaultRouteTable() *RouteTable {
	return NewRouteTable([]RouteRule{
		{Prefix: "/facility/dashboard", Required: []catalog.Permission{catalog.PermBookingsView}},
		{Prefix: "/facility/dashboard/bookings", Required: []catalog.Permission{catalog.PermBookingsView}},
		{Prefix: "/facility/dashboard/bookings/new", Required: []catalog.Permission{catalog.PermBookingsManage}},
		{Prefix: "/facility/dashboard/calendar", Required: []catalog.Permission{catalog.PermBookingsView}},
		{Prefix: "/facility/dashboard/billing", Required: []catalog.Permission{catalog.PermBillingView}},
		{Prefix: "/facility/dashboard/billing/invoices", Required: []catalog.Permission{catalog.PermBillingManage}},
		{Prefix: "/facility/dashboard/loyalty", Required: []catalog.Permission{catalog.PermLoyaltyView}},
		{Prefix: "/facility/dashboard/loyalty/rewards", Required: []catalog.Permission{catalog.PermLoyaltyManage}},
		{Prefix: "/facility/dashboard/pets", Required: []catalog.Permission{catalog.PermPetsView}},
		{Prefix: "/facility/dashboard/reports", Required: []catalog.Permission{catalog.PermReportsView}},
		{Prefix: "/facility/dashboard/settings", Required: []catalog.Permission{catalog.PermSettingsManage}},
		{
			Prefix: "/facility/dashboard/settings/permissions",
			Required: []catalog.Permission{
				catalog.PermSettingsManage,
				catalog.PermUsersManagePermissions,
			},
		},
		{Prefix: "/facility/dashboard/users", Required: []catalog.Permission{catalog.PermUsersView}},
	})
}
