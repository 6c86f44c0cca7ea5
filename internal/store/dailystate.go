package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Signal names carried by every DailyState.
const (
	SignalSleep        = "sleep"
	SignalMood         = "mood"
	SignalStress       = "stress"
	SignalEnergy       = "energy"
	SignalTrainingLoad = "trainingLoad"
	SignalNutrition    = "nutrition"
	SignalHabits       = "habits"
	SignalSymptoms     = "symptomsContext"
	SignalLabs         = "labsContext"
	SignalReflection   = "reflectionContext"
)

// SignalNames lists all ten signals in stable order.
var SignalNames = []string{
	SignalSleep, SignalMood, SignalStress, SignalEnergy, SignalTrainingLoad,
	SignalNutrition, SignalHabits, SignalSymptoms, SignalLabs, SignalReflection,
}

// Summary labels.
const (
	LabelUnknown    = "unknown"
	LabelStable     = "stable"
	LabelOverloaded = "overloaded"
	LabelDepleted   = "depleted"
	LabelRecovering = "recovering"
)

// SignalEvidence links a signal back to the raw records it was derived from.
type SignalEvidence struct {
	RecordIDs []string `json:"recordIds"`
	Source    string   `json:"source"`
}

// Signal is a normalized [0,1] measurement. A nil Value always carries
// confidence 0.
type Signal struct {
	Value      *float64        `json:"value"`
	Confidence float64         `json:"confidence"`
	Raw        *SignalEvidence `json:"raw"`
}

// SummaryState is the rule-based classification of a day.
type SummaryState struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// DailyState is the compiled per-(user, dayKey) snapshot. Recomputes
// replace the whole row; it is never partially mutated.
type DailyState struct {
	UserID         string            `json:"userId"`
	DayKey         string            `json:"dayKey"`
	Signals        map[string]Signal `json:"signals"`
	Summary        SummaryState      `json:"summary"`
	EvidenceIDs    []string          `json:"evidenceIds"`
	ComputedAt     int64             `json:"computedAt"`
	ComputeVersion int               `json:"computeVersion"`
	InputsHash     string            `json:"inputsHash"`
}

// Signal returns the named signal, or a zero-confidence signal if absent.
func (s *DailyState) Signal(name string) Signal {
	if sig, ok := s.Signals[name]; ok {
		return sig
	}
	return Signal{}
}

// SaveDailyState idempotently replaces the state for (user, dayKey).
func (db *DB) SaveDailyState(s *DailyState) error {
	if s.ComputedAt == 0 {
		s.ComputedAt = time.Now().UnixMilli()
	}
	signals, err := json.Marshal(s.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	reasons, err := json.Marshal(s.Summary.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	evidence, err := json.Marshal(s.EvidenceIDs)
	if err != nil {
		return fmt.Errorf("marshal evidence ids: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO daily_states (user_id, day_key, signals, label, confidence, reasons, evidence_ids, computed_at, compute_version, inputs_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, day_key) DO UPDATE SET
			signals = excluded.signals,
			label = excluded.label,
			confidence = excluded.confidence,
			reasons = excluded.reasons,
			evidence_ids = excluded.evidence_ids,
			computed_at = excluded.computed_at,
			compute_version = excluded.compute_version,
			inputs_hash = excluded.inputs_hash
	`, s.UserID, s.DayKey, string(signals), s.Summary.Label, s.Summary.Confidence,
		string(reasons), string(evidence), s.ComputedAt, s.ComputeVersion, s.InputsHash)
	if err != nil {
		return fmt.Errorf("save daily state: %w", err)
	}
	return nil
}

// GetDailyState returns the state for (user, dayKey), or nil if not computed.
func (db *DB) GetDailyState(userID, dayKey string) (*DailyState, error) {
	row := db.QueryRow(`
		SELECT user_id, day_key, signals, label, confidence, reasons, evidence_ids, computed_at, compute_version, inputs_hash
		FROM daily_states WHERE user_id = ? AND day_key = ?
	`, userID, dayKey)
	s, err := scanDailyState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily state: %w", err)
	}
	return s, nil
}

// DailyStatesBetween returns all states with fromKey <= dayKey <= toKey,
// oldest first. ISO day keys compare correctly as strings.
func (db *DB) DailyStatesBetween(userID, fromKey, toKey string) ([]DailyState, error) {
	rows, err := db.Query(`
		SELECT user_id, day_key, signals, label, confidence, reasons, evidence_ids, computed_at, compute_version, inputs_hash
		FROM daily_states
		WHERE user_id = ? AND day_key >= ? AND day_key <= ?
		ORDER BY day_key
	`, userID, fromKey, toKey)
	if err != nil {
		return nil, fmt.Errorf("daily states between: %w", err)
	}
	defer rows.Close()

	var out []DailyState
	for rows.Next() {
		s, err := scanDailyState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily state: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDailyState(row rowScanner) (*DailyState, error) {
	var s DailyState
	var signals, reasons, evidence string
	if err := row.Scan(&s.UserID, &s.DayKey, &signals, &s.Summary.Label, &s.Summary.Confidence,
		&reasons, &evidence, &s.ComputedAt, &s.ComputeVersion, &s.InputsHash); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(signals), &s.Signals); err != nil {
		return nil, fmt.Errorf("unmarshal signals: %w", err)
	}
	if err := json.Unmarshal([]byte(reasons), &s.Summary.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(evidence), &s.EvidenceIDs); err != nil {
		return nil, fmt.Errorf("unmarshal evidence ids: %w", err)
	}
	return &s, nil
}
