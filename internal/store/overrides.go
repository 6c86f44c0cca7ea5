package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Override scopes. "all" damps every signal category.
const (
	ScopeAll       = "all"
	ScopeSleep     = "sleep"
	ScopeStress    = "stress"
	ScopeTraining  = "training"
	ScopeNutrition = "nutrition"
)

// MemoryOverride is a user- or operator-declared window during which
// pattern and identity reinforcement is attenuated. Authored outside the
// core; read-only input to the pipeline.
type MemoryOverride struct {
	ID          string
	UserID      string
	StartDayKey string
	EndDayKey   string
	Scope       string
	Kind        string // e.g. "travel", "illness", "medication_change"
	Strength    float64
	Note        string
	CreatedAt   int64
}

// AddOverride stores an override window.
func (db *DB) AddOverride(o *MemoryOverride) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt == 0 {
		o.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO memory_overrides (id, user_id, start_day_key, end_day_key, scope, kind, strength, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.UserID, o.StartDayKey, o.EndDayKey, o.Scope, o.Kind, o.Strength, o.Note, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("add override: %w", err)
	}
	return nil
}

// OverridesCovering returns all overrides whose day range contains dayKey.
// ISO day keys compare correctly as strings.
func (db *DB) OverridesCovering(userID, dayKey string) ([]MemoryOverride, error) {
	rows, err := db.Query(`
		SELECT id, user_id, start_day_key, end_day_key, scope, kind, strength, note, created_at
		FROM memory_overrides
		WHERE user_id = ? AND start_day_key <= ? AND end_day_key >= ?
		ORDER BY created_at
	`, userID, dayKey, dayKey)
	if err != nil {
		return nil, fmt.Errorf("overrides covering: %w", err)
	}
	defer rows.Close()

	var out []MemoryOverride
	for rows.Next() {
		var o MemoryOverride
		var kind, note sql.NullString
		if err := rows.Scan(&o.ID, &o.UserID, &o.StartDayKey, &o.EndDayKey, &o.Scope, &kind, &o.Strength, &note, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		o.Kind = kind.String
		o.Note = note.String
		out = append(out, o)
	}
	return out, rows.Err()
}
