package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Identity statuses. Unsupported identities fade and eventually retire;
// rows are never deleted.
const (
	IdentityActive  = "active"
	IdentityFading  = "fading"
	IdentityRetired = "retired"
)

// Identity is a long-lived trait synthesized from multiple stable patterns.
type Identity struct {
	UserID             string   `json:"userId"`
	Key                string   `json:"key"`
	Claim              string   `json:"claim"`
	SupportingPatterns []string `json:"supportingPatterns"`
	Confidence         float64  `json:"confidence"`
	StabilityScore     float64  `json:"stabilityScore"`
	FirstConfirmed     string   `json:"firstConfirmed"`
	LastReinforced     string   `json:"lastReinforced"`
	Status             string   `json:"status"`
	UpdatedAt          int64    `json:"updatedAt"`
}

// SaveIdentity upserts an identity row keyed by (user, identity key).
func (db *DB) SaveIdentity(id *Identity) error {
	id.UpdatedAt = time.Now().UnixMilli()
	support, err := json.Marshal(id.SupportingPatterns)
	if err != nil {
		return fmt.Errorf("marshal supporting patterns: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO identities (user_id, identity_key, claim, supporting_patterns, confidence,
			stability_score, first_confirmed, last_reinforced, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, identity_key) DO UPDATE SET
			claim = excluded.claim,
			supporting_patterns = excluded.supporting_patterns,
			confidence = excluded.confidence,
			stability_score = excluded.stability_score,
			first_confirmed = excluded.first_confirmed,
			last_reinforced = excluded.last_reinforced,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, id.UserID, id.Key, id.Claim, string(support), id.Confidence,
		id.StabilityScore, id.FirstConfirmed, id.LastReinforced, id.Status, id.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// GetIdentity returns the identity for (user, key), or nil if not found.
func (db *DB) GetIdentity(userID, key string) (*Identity, error) {
	row := db.QueryRow(`
		SELECT user_id, identity_key, claim, supporting_patterns, confidence,
			stability_score, first_confirmed, last_reinforced, status, updated_at
		FROM identities WHERE user_id = ? AND identity_key = ?
	`, userID, key)
	id, err := scanIdentity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return id, nil
}

// ListIdentities returns every identity for a user.
func (db *DB) ListIdentities(userID string) ([]Identity, error) {
	return db.queryIdentities(`
		SELECT user_id, identity_key, claim, supporting_patterns, confidence,
			stability_score, first_confirmed, last_reinforced, status, updated_at
		FROM identities WHERE user_id = ? ORDER BY identity_key
	`, userID)
}

// ActiveIdentities returns a user's identities with status 'active',
// highest confidence first.
func (db *DB) ActiveIdentities(userID string) ([]Identity, error) {
	return db.queryIdentities(`
		SELECT user_id, identity_key, claim, supporting_patterns, confidence,
			stability_score, first_confirmed, last_reinforced, status, updated_at
		FROM identities WHERE user_id = ? AND status = 'active'
		ORDER BY confidence DESC
	`, userID)
}

func (db *DB) queryIdentities(query string, args ...any) ([]Identity, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, *id)
	}
	return out, rows.Err()
}

func scanIdentity(row rowScanner) (*Identity, error) {
	var id Identity
	var support string
	if err := row.Scan(&id.UserID, &id.Key, &id.Claim, &support, &id.Confidence,
		&id.StabilityScore, &id.FirstConfirmed, &id.LastReinforced, &id.Status, &id.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(support), &id.SupportingPatterns); err != nil {
		return nil, fmt.Errorf("unmarshal supporting patterns: %w", err)
	}
	return &id, nil
}
