package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/quietloop/wellspring/internal/store"
)

// ComputeVersion tags compiled daily states so future normalization
// changes can invalidate old rows.
const ComputeVersion = 1

// moodAnchors maps 5-point mood categories to fixed signal values.
var moodAnchors = map[string]float64{
	"very_low": 0.10,
	"low":      0.25,
	"neutral":  0.50,
	"good":     0.75,
	"great":    0.90,
}

// dayInputs is the bounded raw snapshot a daily compile reads. Also the
// canonical document hashed into InputsHash, so field order matters.
type dayInputs struct {
	Mood      *store.MetricLog     `json:"mood"`
	Sleep     *store.MetricLog     `json:"sleep"`
	Stress    *store.MetricLog     `json:"stress"`
	Energy    *store.MetricLog     `json:"energy"`
	Workouts  []store.Workout      `json:"workouts"`
	Habits    []store.HabitLog     `json:"habits"`
	Symptoms  []store.SymptomLog   `json:"symptoms"`
	Labs      []store.LabReport    `json:"labs"`
	Journal   []store.JournalEntry `json:"journal"`
	Nutrition []store.NutritionLog `json:"nutrition"`
}

// CompileDaily recomputes the DailyState for (user, dayKey) from the raw
// logs bounded to that local calendar day, replaces the stored row, and
// returns the new state. The replace is fully idempotent: identical
// evidence yields identical signals, summary, and hash.
func (e *Engine) CompileDaily(ctx context.Context, userID, dayKey string) (*store.DailyState, error) {
	startMs, endMs, err := dayBounds(dayKey, e.loc)
	if err != nil {
		return nil, err
	}

	in, err := e.loadDayInputs(userID, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("load day inputs: %w", err)
	}

	state := &store.DailyState{
		UserID:         userID,
		DayKey:         dayKey,
		Signals:        compileSignals(in),
		ComputeVersion: ComputeVersion,
	}
	state.Summary = classify(state.Signals)
	state.EvidenceIDs = collectEvidenceIDs(in)
	state.InputsHash, err = hashInputs(in)
	if err != nil {
		return nil, fmt.Errorf("hash inputs: %w", err)
	}

	if err := e.db.SaveDailyState(state); err != nil {
		return nil, fmt.Errorf("persist daily state: %w", err)
	}
	return state, nil
}

// EnsureDaily returns the stored DailyState for (user, dayKey), compiling
// it on demand when missing or when force is set.
func (e *Engine) EnsureDaily(ctx context.Context, userID, dayKey string, force bool) (*store.DailyState, error) {
	if _, err := ParseDayKey(dayKey); err != nil {
		return nil, err
	}
	if !force {
		state, err := e.db.GetDailyState(userID, dayKey)
		if err != nil {
			return nil, err
		}
		if state != nil {
			return state, nil
		}
	}
	return e.CompileDaily(ctx, userID, dayKey)
}

func (e *Engine) loadDayInputs(userID string, startMs, endMs int64) (*dayInputs, error) {
	var in dayInputs
	var err error

	if in.Mood, err = e.db.LatestMetric(userID, store.MetricMood, startMs, endMs); err != nil {
		return nil, err
	}
	if in.Sleep, err = e.db.LatestMetric(userID, store.MetricSleep, startMs, endMs); err != nil {
		return nil, err
	}
	if in.Stress, err = e.db.LatestMetric(userID, store.MetricStress, startMs, endMs); err != nil {
		return nil, err
	}
	if in.Energy, err = e.db.LatestMetric(userID, store.MetricEnergy, startMs, endMs); err != nil {
		return nil, err
	}
	if in.Workouts, err = e.db.WorkoutsBetween(userID, startMs, endMs); err != nil {
		return nil, err
	}
	if in.Habits, err = e.db.HabitLogsBetween(userID, startMs, endMs); err != nil {
		return nil, err
	}
	if in.Symptoms, err = e.db.SymptomsBetween(userID, startMs, endMs); err != nil {
		return nil, err
	}
	if in.Labs, err = e.db.LabReportsBetween(userID, startMs, endMs); err != nil {
		return nil, err
	}
	if in.Journal, err = e.db.JournalEntriesBetween(userID, startMs, endMs); err != nil {
		return nil, err
	}
	if in.Nutrition, err = e.db.NutritionLogsBetween(userID, startMs, endMs); err != nil {
		return nil, err
	}
	return &in, nil
}

func compileSignals(in *dayInputs) map[string]store.Signal {
	return map[string]store.Signal{
		store.SignalSleep:        sleepSignal(in.Sleep),
		store.SignalMood:         moodSignal(in.Mood),
		store.SignalStress:       scaleSignal(in.Stress),
		store.SignalEnergy:       scaleSignal(in.Energy),
		store.SignalTrainingLoad: trainingLoadSignal(in.Workouts),
		store.SignalNutrition:    nutritionSignal(in.Nutrition),
		store.SignalHabits:       habitsSignal(in.Habits),
		store.SignalSymptoms:     symptomsSignal(in.Symptoms),
		store.SignalLabs:         labsSignal(in.Labs),
		store.SignalReflection:   reflectionSignal(in.Journal),
	}
}

// sleepSignal maps sleep hours linearly from [4h, 9h] onto [0, 1].
func sleepSignal(m *store.MetricLog) store.Signal {
	if m == nil || m.Value == nil {
		return store.Signal{}
	}
	v := clamp01((*m.Value - 4) / 5)
	return store.Signal{
		Value:      &v,
		Confidence: 1,
		Raw:        &store.SignalEvidence{RecordIDs: []string{m.ID}, Source: "sleep_log"},
	}
}

// moodSignal prefers a numeric 1-10 reading; falls back to the 5-point
// category anchors at reduced confidence.
func moodSignal(m *store.MetricLog) store.Signal {
	if m == nil {
		return store.Signal{}
	}
	ev := &store.SignalEvidence{RecordIDs: []string{m.ID}, Source: "mood_log"}
	if m.Value != nil {
		v := scale1to10(*m.Value)
		return store.Signal{Value: &v, Confidence: 1, Raw: ev}
	}
	if anchor, ok := moodAnchors[m.Label]; ok {
		v := anchor
		return store.Signal{Value: &v, Confidence: 0.6, Raw: ev}
	}
	return store.Signal{}
}

// scaleSignal normalizes a plain 1-10 reading (stress, energy).
func scaleSignal(m *store.MetricLog) store.Signal {
	if m == nil || m.Value == nil {
		return store.Signal{}
	}
	v := scale1to10(*m.Value)
	return store.Signal{
		Value:      &v,
		Confidence: 1,
		Raw:        &store.SignalEvidence{RecordIDs: []string{m.ID}, Source: m.Kind + "_log"},
	}
}

// trainingLoadSignal averages perceived intensity and fatigue across the
// day's workouts. Confidence reflects how many of the two dimensions were
// actually recorded.
func trainingLoadSignal(workouts []store.Workout) store.Signal {
	if len(workouts) == 0 {
		return store.Signal{}
	}

	var intensitySum, fatigueSum float64
	var intensityN, fatigueN int
	ids := make([]string, 0, len(workouts))
	for _, w := range workouts {
		ids = append(ids, w.ID)
		if w.Intensity != nil {
			intensitySum += *w.Intensity
			intensityN++
		}
		if w.Fatigue != nil {
			fatigueSum += *w.Fatigue
			fatigueN++
		}
	}

	var dims []float64
	if intensityN > 0 {
		dims = append(dims, intensitySum/float64(intensityN))
	}
	if fatigueN > 0 {
		dims = append(dims, fatigueSum/float64(fatigueN))
	}
	if len(dims) == 0 {
		return store.Signal{}
	}

	conf := 0.6
	if len(dims) == 2 {
		conf = 0.9
	}
	v := scale1to10(mean(dims))
	return store.Signal{
		Value:      &v,
		Confidence: conf,
		Raw:        &store.SignalEvidence{RecordIDs: ids, Source: "workouts"},
	}
}

// nutritionSignal scores log completeness: one point for each macro
// (protein, carbs, fat) with a positive total, one for calories, one for
// water, out of five.
func nutritionSignal(logs []store.NutritionLog) store.Signal {
	if len(logs) == 0 {
		return store.Signal{}
	}

	var calories, protein, carbs, fat, water float64
	ids := make([]string, 0, len(logs))
	for _, n := range logs {
		ids = append(ids, n.ID)
		calories += n.Calories
		protein += n.Protein
		carbs += n.Carbs
		fat += n.Fat
		water += n.Water
	}

	macros := 0
	for _, m := range []float64{protein, carbs, fat} {
		if m > 0 {
			macros++
		}
	}
	points := macros
	if calories > 0 {
		points++
	}
	if water > 0 {
		points++
	}

	conf := 0.4 // logged, but empty
	switch {
	case calories > 0 && macros >= 2:
		conf = 0.9
	case points > 0:
		conf = 0.6
	}

	v := float64(points) / 5
	return store.Signal{
		Value:      &v,
		Confidence: conf,
		Raw:        &store.SignalEvidence{RecordIDs: ids, Source: "nutrition_logs"},
	}
}

// habitsSignal is the completion ratio; confidence grows with log volume.
func habitsSignal(logs []store.HabitLog) store.Signal {
	if len(logs) == 0 {
		return store.Signal{}
	}

	completed := 0
	ids := make([]string, 0, len(logs))
	for _, h := range logs {
		ids = append(ids, h.ID)
		if h.Completed {
			completed++
		}
	}

	var conf float64
	switch {
	case len(logs) >= 6:
		conf = 0.8
	case len(logs) >= 2:
		conf = 0.55
	default:
		conf = 0.35
	}

	v := float64(completed) / float64(len(logs))
	return store.Signal{
		Value:      &v,
		Confidence: conf,
		Raw:        &store.SignalEvidence{RecordIDs: ids, Source: "habit_logs"},
	}
}

// symptomsSignal is mean severity over 10.
func symptomsSignal(logs []store.SymptomLog) store.Signal {
	if len(logs) == 0 {
		return store.Signal{}
	}

	var sum float64
	ids := make([]string, 0, len(logs))
	for _, s := range logs {
		ids = append(ids, s.ID)
		sum += s.Severity
	}

	conf := 0.45
	if len(logs) >= 3 {
		conf = 0.75
	}

	v := clamp01(sum / float64(len(logs)) / 10)
	return store.Signal{
		Value:      &v,
		Confidence: conf,
		Raw:        &store.SignalEvidence{RecordIDs: ids, Source: "symptom_logs"},
	}
}

// labsSignal saturates at three flagged results across the day's reports.
func labsSignal(reports []store.LabReport) store.Signal {
	if len(reports) == 0 {
		return store.Signal{}
	}

	flagged := 0
	ids := make([]string, 0, len(reports))
	for _, l := range reports {
		ids = append(ids, l.ID)
		flagged += l.FlaggedCount
	}
	if flagged > 3 {
		flagged = 3
	}

	v := float64(flagged) / 3
	return store.Signal{
		Value:      &v,
		Confidence: 0.55,
		Raw:        &store.SignalEvidence{RecordIDs: ids, Source: "lab_reports"},
	}
}

// reflectionSignal saturates at 700 characters of journal text.
func reflectionSignal(entries []store.JournalEntry) store.Signal {
	if len(entries) == 0 {
		return store.Signal{}
	}

	total := 0
	ids := make([]string, 0, len(entries))
	for _, j := range entries {
		ids = append(ids, j.ID)
		total += len(j.Body)
	}

	v := clamp01(float64(total) / 700)
	return store.Signal{
		Value:      &v,
		Confidence: 0.4,
		Raw:        &store.SignalEvidence{RecordIDs: ids, Source: "journal_entries"},
	}
}

func collectEvidenceIDs(in *dayInputs) []string {
	var ids []string
	for _, m := range []*store.MetricLog{in.Mood, in.Sleep, in.Stress, in.Energy} {
		if m != nil {
			ids = append(ids, m.ID)
		}
	}
	for _, w := range in.Workouts {
		ids = append(ids, w.ID)
	}
	for _, h := range in.Habits {
		ids = append(ids, h.ID)
	}
	for _, s := range in.Symptoms {
		ids = append(ids, s.ID)
	}
	for _, l := range in.Labs {
		ids = append(ids, l.ID)
	}
	for _, j := range in.Journal {
		ids = append(ids, j.ID)
	}
	for _, n := range in.Nutrition {
		ids = append(ids, n.ID)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// hashInputs produces a deterministic digest of the raw evidence so
// unchanged inputs can be detected across recomputes.
func hashInputs(in *dayInputs) (string, error) {
	doc, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(doc)
	return hex.EncodeToString(sum[:]), nil
}

func scale1to10(v float64) float64 {
	return clamp01((v - 1) / 9)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
