package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "raw log snapshots: per-user timestamped wellness records",
		SQL: `
CREATE TABLE metric_logs (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    kind        TEXT NOT NULL CHECK (kind IN ('mood', 'sleep', 'stress', 'energy')),
    recorded_at INTEGER NOT NULL,
    value       REAL,
    label       TEXT
);
CREATE INDEX idx_metric_user_kind_time ON metric_logs(user_id, kind, recorded_at DESC);

CREATE TABLE workouts (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,
    activity    TEXT,
    intensity   REAL,
    fatigue     REAL
);
CREATE INDEX idx_workout_user_time ON workouts(user_id, recorded_at);

CREATE TABLE habit_logs (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,
    habit       TEXT NOT NULL,
    completed   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX idx_habit_user_time ON habit_logs(user_id, recorded_at);

CREATE TABLE symptom_logs (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,
    name        TEXT NOT NULL,
    severity    REAL NOT NULL
);
CREATE INDEX idx_symptom_user_time ON symptom_logs(user_id, recorded_at);

CREATE TABLE lab_reports (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    recorded_at   INTEGER NOT NULL,
    panel         TEXT,
    flagged_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX idx_lab_user_time ON lab_reports(user_id, recorded_at);

CREATE TABLE journal_entries (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,
    body        TEXT NOT NULL
);
CREATE INDEX idx_journal_user_time ON journal_entries(user_id, recorded_at);

CREATE TABLE nutrition_logs (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,
    calories    REAL NOT NULL DEFAULT 0,
    protein     REAL NOT NULL DEFAULT 0,
    carbs       REAL NOT NULL DEFAULT 0,
    fat         REAL NOT NULL DEFAULT 0,
    water       REAL NOT NULL DEFAULT 0
);
CREATE INDEX idx_nutrition_user_time ON nutrition_logs(user_id, recorded_at);
`,
	},
	{
		Version:     2,
		Description: "memory_overrides: user-declared attenuation windows",
		SQL: `
CREATE TABLE memory_overrides (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    start_day_key TEXT NOT NULL,
    end_day_key   TEXT NOT NULL,
    scope         TEXT NOT NULL CHECK (scope IN ('all', 'sleep', 'stress', 'training', 'nutrition')),
    kind          TEXT,
    strength      REAL NOT NULL,
    note          TEXT,
    created_at    INTEGER NOT NULL
);
CREATE INDEX idx_override_user ON memory_overrides(user_id, start_day_key, end_day_key);
`,
	},
	{
		Version:     3,
		Description: "daily_states: compiled per-day signal documents",
		SQL: `
CREATE TABLE daily_states (
    user_id         TEXT NOT NULL,
    day_key         TEXT NOT NULL,
    signals         TEXT NOT NULL,
    label           TEXT NOT NULL,
    confidence      REAL NOT NULL,
    reasons         TEXT NOT NULL,
    evidence_ids    TEXT NOT NULL,
    computed_at     INTEGER NOT NULL,
    compute_version INTEGER NOT NULL,
    inputs_hash     TEXT NOT NULL,
    PRIMARY KEY (user_id, day_key)
);
CREATE INDEX idx_daily_user_day ON daily_states(user_id, day_key DESC);
`,
	},
	{
		Version:     4,
		Description: "patterns: qualified condition->effect records",
		SQL: `
CREATE TABLE patterns (
    user_id          TEXT NOT NULL,
    pattern_key      TEXT NOT NULL,
    conditions       TEXT NOT NULL,
    effect           TEXT NOT NULL,
    effect_window    TEXT NOT NULL CHECK (effect_window IN ('same_day', 'next_day')),
    support_day_keys TEXT NOT NULL,
    support_count    INTEGER NOT NULL,
    confidence       REAL NOT NULL,
    first_observed   TEXT NOT NULL,
    last_observed    TEXT NOT NULL,
    decay_score      REAL NOT NULL DEFAULT 0,
    status           TEXT NOT NULL CHECK (status IN ('active', 'weak', 'retired')),
    updated_at       INTEGER NOT NULL,
    PRIMARY KEY (user_id, pattern_key)
);
CREATE INDEX idx_pattern_user_status ON patterns(user_id, status);
`,
	},
	{
		Version:     5,
		Description: "identities: long-lived traits synthesized from patterns",
		SQL: `
CREATE TABLE identities (
    user_id             TEXT NOT NULL,
    identity_key        TEXT NOT NULL,
    claim               TEXT NOT NULL,
    supporting_patterns TEXT NOT NULL,
    confidence          REAL NOT NULL,
    stability_score     REAL NOT NULL,
    first_confirmed     TEXT NOT NULL,
    last_reinforced     TEXT NOT NULL,
    status              TEXT NOT NULL CHECK (status IN ('active', 'fading', 'retired')),
    updated_at          INTEGER NOT NULL,
    PRIMARY KEY (user_id, identity_key)
);
CREATE INDEX idx_identity_user_status ON identities(user_id, status);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
