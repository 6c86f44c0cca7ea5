package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metric kinds accepted by AddMetricLog.
const (
	MetricMood   = "mood"
	MetricSleep  = "sleep"
	MetricStress = "stress"
	MetricEnergy = "energy"
)

// maxJournalBodySize caps stored journal bodies. Longer entries are
// truncated at write time; the compiler only needs entry length anyway.
const maxJournalBodySize = 20 * 1024 // 20KB

// MetricLog is a single mood/sleep/stress/energy reading.
// Mood may carry either a numeric value (1-10) or a category label
// (very_low, low, neutral, good, great). Sleep's value is hours.
type MetricLog struct {
	ID         string
	UserID     string
	Kind       string
	RecordedAt int64
	Value      *float64
	Label      string
}

// Workout is one training session with optional perceived intensity
// and fatigue, both on a 1-10 scale.
type Workout struct {
	ID         string
	UserID     string
	RecordedAt int64
	Activity   string
	Intensity  *float64
	Fatigue    *float64
}

// HabitLog records one habit check-in for a day.
type HabitLog struct {
	ID         string
	UserID     string
	RecordedAt int64
	Habit      string
	Completed  bool
}

// SymptomLog records a symptom with severity on a 1-10 scale.
type SymptomLog struct {
	ID         string
	UserID     string
	RecordedAt int64
	Name       string
	Severity   float64
}

// LabReport records an uploaded lab panel and how many results were flagged.
type LabReport struct {
	ID           string
	UserID       string
	RecordedAt   int64
	Panel        string
	FlaggedCount int
}

// JournalEntry is a free-text reflection entry.
type JournalEntry struct {
	ID         string
	UserID     string
	RecordedAt int64
	Body       string
}

// NutritionLog is one logged meal or daily nutrition summary.
type NutritionLog struct {
	ID         string
	UserID     string
	RecordedAt int64
	Calories   float64
	Protein    float64
	Carbs      float64
	Fat        float64
	Water      float64
}

// AddMetricLog stores a metric reading and returns its generated ID.
func (db *DB) AddMetricLog(m *MetricLog) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.RecordedAt == 0 {
		m.RecordedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO metric_logs (id, user_id, kind, recorded_at, value, label)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''))
	`, m.ID, m.UserID, m.Kind, m.RecordedAt, nullFloat(m.Value), m.Label)
	if err != nil {
		return fmt.Errorf("add metric log: %w", err)
	}
	return nil
}

// LatestMetric returns the most recent metric of the given kind within
// [startMs, endMs), or nil if none was recorded.
func (db *DB) LatestMetric(userID, kind string, startMs, endMs int64) (*MetricLog, error) {
	var m MetricLog
	var value sql.NullFloat64
	var label sql.NullString
	err := db.QueryRow(`
		SELECT id, user_id, kind, recorded_at, value, label
		FROM metric_logs
		WHERE user_id = ? AND kind = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at DESC LIMIT 1
	`, userID, kind, startMs, endMs).Scan(&m.ID, &m.UserID, &m.Kind, &m.RecordedAt, &value, &label)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest metric %s: %w", kind, err)
	}
	if value.Valid {
		m.Value = &value.Float64
	}
	m.Label = label.String
	return &m, nil
}

// AddWorkout stores a workout record.
func (db *DB) AddWorkout(w *Workout) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.RecordedAt == 0 {
		w.RecordedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO workouts (id, user_id, recorded_at, activity, intensity, fatigue)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.ID, w.UserID, w.RecordedAt, w.Activity, nullFloat(w.Intensity), nullFloat(w.Fatigue))
	if err != nil {
		return fmt.Errorf("add workout: %w", err)
	}
	return nil
}

// WorkoutsBetween returns all workouts within [startMs, endMs), oldest first.
func (db *DB) WorkoutsBetween(userID string, startMs, endMs int64) ([]Workout, error) {
	rows, err := db.Query(`
		SELECT id, user_id, recorded_at, activity, intensity, fatigue
		FROM workouts
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at
	`, userID, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("workouts between: %w", err)
	}
	defer rows.Close()

	var out []Workout
	for rows.Next() {
		var w Workout
		var activity sql.NullString
		var intensity, fatigue sql.NullFloat64
		if err := rows.Scan(&w.ID, &w.UserID, &w.RecordedAt, &activity, &intensity, &fatigue); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		w.Activity = activity.String
		if intensity.Valid {
			w.Intensity = &intensity.Float64
		}
		if fatigue.Valid {
			w.Fatigue = &fatigue.Float64
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AddHabitLog stores a habit check-in.
func (db *DB) AddHabitLog(h *HabitLog) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.RecordedAt == 0 {
		h.RecordedAt = time.Now().UnixMilli()
	}
	completed := 0
	if h.Completed {
		completed = 1
	}
	_, err := db.Exec(`
		INSERT INTO habit_logs (id, user_id, recorded_at, habit, completed)
		VALUES (?, ?, ?, ?, ?)
	`, h.ID, h.UserID, h.RecordedAt, h.Habit, completed)
	if err != nil {
		return fmt.Errorf("add habit log: %w", err)
	}
	return nil
}

// HabitLogsBetween returns all habit check-ins within [startMs, endMs).
func (db *DB) HabitLogsBetween(userID string, startMs, endMs int64) ([]HabitLog, error) {
	rows, err := db.Query(`
		SELECT id, user_id, recorded_at, habit, completed
		FROM habit_logs
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at
	`, userID, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("habit logs between: %w", err)
	}
	defer rows.Close()

	var out []HabitLog
	for rows.Next() {
		var h HabitLog
		var completed int
		if err := rows.Scan(&h.ID, &h.UserID, &h.RecordedAt, &h.Habit, &completed); err != nil {
			return nil, fmt.Errorf("scan habit log: %w", err)
		}
		h.Completed = completed != 0
		out = append(out, h)
	}
	return out, rows.Err()
}

// AddSymptomLog stores a symptom record.
func (db *DB) AddSymptomLog(s *SymptomLog) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.RecordedAt == 0 {
		s.RecordedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO symptom_logs (id, user_id, recorded_at, name, severity)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.UserID, s.RecordedAt, s.Name, s.Severity)
	if err != nil {
		return fmt.Errorf("add symptom log: %w", err)
	}
	return nil
}

// SymptomsBetween returns all symptom logs within [startMs, endMs).
func (db *DB) SymptomsBetween(userID string, startMs, endMs int64) ([]SymptomLog, error) {
	rows, err := db.Query(`
		SELECT id, user_id, recorded_at, name, severity
		FROM symptom_logs
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at
	`, userID, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("symptoms between: %w", err)
	}
	defer rows.Close()

	var out []SymptomLog
	for rows.Next() {
		var s SymptomLog
		if err := rows.Scan(&s.ID, &s.UserID, &s.RecordedAt, &s.Name, &s.Severity); err != nil {
			return nil, fmt.Errorf("scan symptom log: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddLabReport stores a lab report record.
func (db *DB) AddLabReport(l *LabReport) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.RecordedAt == 0 {
		l.RecordedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO lab_reports (id, user_id, recorded_at, panel, flagged_count)
		VALUES (?, ?, ?, ?, ?)
	`, l.ID, l.UserID, l.RecordedAt, l.Panel, l.FlaggedCount)
	if err != nil {
		return fmt.Errorf("add lab report: %w", err)
	}
	return nil
}

// LabReportsBetween returns all lab reports within [startMs, endMs).
func (db *DB) LabReportsBetween(userID string, startMs, endMs int64) ([]LabReport, error) {
	rows, err := db.Query(`
		SELECT id, user_id, recorded_at, panel, flagged_count
		FROM lab_reports
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at
	`, userID, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("lab reports between: %w", err)
	}
	defer rows.Close()

	var out []LabReport
	for rows.Next() {
		var l LabReport
		var panel sql.NullString
		if err := rows.Scan(&l.ID, &l.UserID, &l.RecordedAt, &panel, &l.FlaggedCount); err != nil {
			return nil, fmt.Errorf("scan lab report: %w", err)
		}
		l.Panel = panel.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// AddJournalEntry stores a journal entry, truncating oversized bodies.
func (db *DB) AddJournalEntry(j *JournalEntry) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.RecordedAt == 0 {
		j.RecordedAt = time.Now().UnixMilli()
	}
	body := j.Body
	if len(body) > maxJournalBodySize {
		body = body[:maxJournalBodySize]
	}
	_, err := db.Exec(`
		INSERT INTO journal_entries (id, user_id, recorded_at, body)
		VALUES (?, ?, ?, ?)
	`, j.ID, j.UserID, j.RecordedAt, body)
	if err != nil {
		return fmt.Errorf("add journal entry: %w", err)
	}
	return nil
}

// JournalEntriesBetween returns all journal entries within [startMs, endMs).
func (db *DB) JournalEntriesBetween(userID string, startMs, endMs int64) ([]JournalEntry, error) {
	rows, err := db.Query(`
		SELECT id, user_id, recorded_at, body
		FROM journal_entries
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at
	`, userID, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("journal entries between: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var j JournalEntry
		if err := rows.Scan(&j.ID, &j.UserID, &j.RecordedAt, &j.Body); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// AddNutritionLog stores a nutrition record.
func (db *DB) AddNutritionLog(n *NutritionLog) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.RecordedAt == 0 {
		n.RecordedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO nutrition_logs (id, user_id, recorded_at, calories, protein, carbs, fat, water)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.RecordedAt, n.Calories, n.Protein, n.Carbs, n.Fat, n.Water)
	if err != nil {
		return fmt.Errorf("add nutrition log: %w", err)
	}
	return nil
}

// NutritionLogsBetween returns all nutrition logs within [startMs, endMs).
func (db *DB) NutritionLogsBetween(userID string, startMs, endMs int64) ([]NutritionLog, error) {
	rows, err := db.Query(`
		SELECT id, user_id, recorded_at, calories, protein, carbs, fat, water
		FROM nutrition_logs
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at
	`, userID, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("nutrition logs between: %w", err)
	}
	defer rows.Close()

	var out []NutritionLog
	for rows.Next() {
		var n NutritionLog
		if err := rows.Scan(&n.ID, &n.UserID, &n.RecordedAt, &n.Calories, &n.Protein, &n.Carbs, &n.Fat, &n.Water); err != nil {
			return nil, fmt.Errorf("scan nutrition log: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
