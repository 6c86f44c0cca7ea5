package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Pattern windows.
const (
	WindowSameDay = "same_day"
	WindowNextDay = "next_day"
)

// Pattern statuses. Status is a pure function of confidence; patterns
// are retired, never hard-deleted.
const (
	PatternActive  = "active"
	PatternWeak    = "weak"
	PatternRetired = "retired"
)

// Pattern is a persisted condition->effect relationship qualified over
// spaced, multi-week observations.
type Pattern struct {
	UserID         string   `json:"userId"`
	Key            string   `json:"key"`
	Conditions     []string `json:"conditions"`
	Effect         string   `json:"effect"`
	Window         string   `json:"window"`
	SupportDayKeys []string `json:"supportDayKeys"`
	SupportCount   int      `json:"supportCount"`
	Confidence     float64  `json:"confidence"`
	FirstObserved  string   `json:"firstObserved"`
	LastObserved   string   `json:"lastObserved"`
	DecayScore     float64  `json:"decayScore"`
	Status         string   `json:"status"`
	UpdatedAt      int64    `json:"updatedAt"`
}

// SavePattern upserts a pattern row keyed by (user, pattern key).
func (db *DB) SavePattern(p *Pattern) error {
	p.UpdatedAt = time.Now().UnixMilli()
	conditions, err := json.Marshal(p.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	support, err := json.Marshal(p.SupportDayKeys)
	if err != nil {
		return fmt.Errorf("marshal support day keys: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO patterns (user_id, pattern_key, conditions, effect, effect_window, support_day_keys,
			support_count, confidence, first_observed, last_observed, decay_score, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, pattern_key) DO UPDATE SET
			support_day_keys = excluded.support_day_keys,
			support_count = excluded.support_count,
			confidence = excluded.confidence,
			first_observed = excluded.first_observed,
			last_observed = excluded.last_observed,
			decay_score = excluded.decay_score,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, p.UserID, p.Key, string(conditions), p.Effect, p.Window, string(support),
		p.SupportCount, p.Confidence, p.FirstObserved, p.LastObserved, p.DecayScore, p.Status, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save pattern: %w", err)
	}
	return nil
}

// GetPattern returns the pattern for (user, key), or nil if not found.
func (db *DB) GetPattern(userID, key string) (*Pattern, error) {
	row := db.QueryRow(`
		SELECT user_id, pattern_key, conditions, effect, effect_window, support_day_keys,
			support_count, confidence, first_observed, last_observed, decay_score, status, updated_at
		FROM patterns WHERE user_id = ? AND pattern_key = ?
	`, userID, key)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pattern: %w", err)
	}
	return p, nil
}

// ListPatterns returns every pattern for a user.
func (db *DB) ListPatterns(userID string) ([]Pattern, error) {
	return db.queryPatterns(`
		SELECT user_id, pattern_key, conditions, effect, effect_window, support_day_keys,
			support_count, confidence, first_observed, last_observed, decay_score, status, updated_at
		FROM patterns WHERE user_id = ? ORDER BY pattern_key
	`, userID)
}

// ActivePatterns returns a user's patterns with status 'active', highest
// confidence first.
func (db *DB) ActivePatterns(userID string) ([]Pattern, error) {
	return db.queryPatterns(`
		SELECT user_id, pattern_key, conditions, effect, effect_window, support_day_keys,
			support_count, confidence, first_observed, last_observed, decay_score, status, updated_at
		FROM patterns WHERE user_id = ? AND status = 'active'
		ORDER BY confidence DESC
	`, userID)
}

func (db *DB) queryPatterns(query string, args ...any) ([]Pattern, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var out []Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPattern(row rowScanner) (*Pattern, error) {
	var p Pattern
	var conditions, support string
	if err := row.Scan(&p.UserID, &p.Key, &conditions, &p.Effect, &p.Window, &support,
		&p.SupportCount, &p.Confidence, &p.FirstObserved, &p.LastObserved,
		&p.DecayScore, &p.Status, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(conditions), &p.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(support), &p.SupportDayKeys); err != nil {
		return nil, fmt.Errorf("unmarshal support day keys: %w", err)
	}
	return &p, nil
}
