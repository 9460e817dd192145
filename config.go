package gatehouse

import "time"

// Config holds configuration for the gatehouse engine.
type Config struct {
	// CacheTTL is the time-to-live for cached check results.
	// Zero means no caching even when a cache is attached.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// EnableCustomMatrix enables facility-level matrix customization.
	// Defaults to true. When disabled, resolution uses catalog defaults
	// plus overrides only.
	EnableCustomMatrix *bool `json:"enable_custom_matrix,omitempty"`

	// EnableOverrides enables per-user permission overrides.
	// Defaults to true.
	EnableOverrides *bool `json:"enable_overrides,omitempty"`

	// AuditDecisions records every check into the decision log.
	// Defaults to false; the log store is only exercised when set.
	AuditDecisions bool `json:"audit_decisions,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		CacheTTL:           time.Minute,
		EnableCustomMatrix: &t,
		EnableOverrides:    &t,
	}
}

func (c Config) customMatrixEnabled() bool {
	return c.EnableCustomMatrix == nil || *c.EnableCustomMatrix
}

func (c Config) overridesEnabled() bool {
	return c.EnableOverrides == nil || *c.EnableOverrides
}
