package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Gatehouse store (SQLite).
var Migrations = migrate.NewGroup("gatehouse")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_role_grants",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gatehouse_role_grants (
    facility_id     TEXT NOT NULL,
    role            TEXT NOT NULL,
    permissions     TEXT NOT NULL DEFAULT '[]',
    updated_by      TEXT NOT NULL DEFAULT '',
    updated_at      TEXT NOT NULL DEFAULT (datetime('now')),

    PRIMARY KEY (facility_id, role)
);

CREATE INDEX IF NOT EXISTS idx_gatehouse_grants_facility ON gatehouse_role_grants (facility_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatehouse_role_grants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_user_overrides",
			Version: "20250301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gatehouse_user_overrides (
    id              TEXT PRIMARY KEY,
    facility_id     TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    role            TEXT NOT NULL DEFAULT '',
    permission      TEXT NOT NULL,
    granted         INTEGER NOT NULL,
    granted_by      TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(facility_id, user_id, permission)
);

CREATE INDEX IF NOT EXISTS idx_gatehouse_ovr_facility ON gatehouse_user_overrides (facility_id);
CREATE INDEX IF NOT EXISTS idx_gatehouse_ovr_user ON gatehouse_user_overrides (facility_id, user_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatehouse_user_overrides`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_session_states",
			Version: "20250301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gatehouse_session_states (
    facility_id     TEXT NOT NULL,
    session_id      TEXT NOT NULL,
    role            TEXT NOT NULL,
    user_id         TEXT NOT NULL DEFAULT '',
    updated_at      TEXT NOT NULL DEFAULT (datetime('now')),

    PRIMARY KEY (facility_id, session_id)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatehouse_session_states`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_decision_logs",
			Version: "20250301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gatehouse_decision_logs (
    id              TEXT PRIMARY KEY,
    facility_id     TEXT NOT NULL,
    role            TEXT NOT NULL,
    user_id         TEXT NOT NULL DEFAULT '',
    permission      TEXT NOT NULL DEFAULT '',
    route           TEXT NOT NULL DEFAULT '',
    decision        TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    eval_time_ns    INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_gatehouse_dlogs_facility ON gatehouse_decision_logs (facility_id);
CREATE INDEX IF NOT EXISTS idx_gatehouse_dlogs_user ON gatehouse_decision_logs (facility_id, user_id);
CREATE INDEX IF NOT EXISTS idx_gatehouse_dlogs_decision ON gatehouse_decision_logs (facility_id, decision);
CREATE INDEX IF NOT EXISTS idx_gatehouse_dlogs_created ON gatehouse_decision_logs (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatehouse_decision_logs`)
				return err
			},
		},
	)
}
