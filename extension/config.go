package extension

import (
	"time"

	"github.com/pawdesk/gatehouse"
)

// Config holds the Gatehouse extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.gatehouse" or "gatehouse" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// CacheTTL is the time-to-live for cached check results.
	// Zero disables caching even when a cache is attached.
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// DisableCustomMatrix turns off facility-level matrix customization;
	// resolution then uses catalog defaults plus overrides only.
	DisableCustomMatrix bool `json:"disable_custom_matrix" mapstructure:"disable_custom_matrix" yaml:"disable_custom_matrix"`

	// DisableOverrides turns off per-user permission overrides.
	DisableOverrides bool `json:"disable_overrides" mapstructure:"disable_overrides" yaml:"disable_overrides"`

	// AuditDecisions records every check into the decision log.
	AuditDecisions bool `json:"audit_decisions" mapstructure:"audit_decisions" yaml:"audit_decisions"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL: time.Minute,
	}
}

// engineConfig translates the extension config into engine config.
func (c Config) engineConfig() gatehouse.Config {
	cfg := gatehouse.DefaultConfig()
	cfg.CacheTTL = c.CacheTTL
	cfg.AuditDecisions = c.AuditDecisions
	if c.DisableCustomMatrix {
		f := false
		cfg.EnableCustomMatrix = &f
	}
	if c.DisableOverrides {
		f := false
		cfg.EnableOverrides = &f
	}
	return cfg
}
