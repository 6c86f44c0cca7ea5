package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quietloop/wellspring/internal/store"
)

func TestCompileDailyInvalidDayKey(t *testing.T) {
	eng, _ := testEngine(t)

	_, err := eng.CompileDaily(context.Background(), "u1", "03/01/2025")
	require.ErrorIs(t, err, ErrInvalidDayKey)

	_, err = eng.EnsureDaily(context.Background(), "u1", "bad", false)
	require.ErrorIs(t, err, ErrInvalidDayKey)
}

func TestCompileDailyEmptyDayIsUnknown(t *testing.T) {
	eng, _ := testEngine(t)

	state, err := eng.CompileDaily(context.Background(), "u1", "2025-03-01")
	require.NoError(t, err)
	require.Equal(t, store.LabelUnknown, state.Summary.Label)
	require.Zero(t, state.Summary.Confidence)
	require.Len(t, state.Signals, 10)
	for _, name := range store.SignalNames {
		s := state.Signal(name)
		require.Nil(t, s.Value, "signal %s", name)
		require.Zero(t, s.Confidence, "signal %s", name)
	}
}

// A single confident stress reading is not enough evidence to classify.
func TestStressOnlyDayStaysUnknown(t *testing.T) {
	eng, db := testEngine(t)
	day := "2025-03-01"

	require.NoError(t, db.AddMetricLog(&store.MetricLog{
		UserID: "u1", Kind: store.MetricStress, RecordedAt: ts(t, day, 9), Value: fptr(8),
	}))

	state, err := eng.CompileDaily(context.Background(), "u1", day)
	require.NoError(t, err)
	require.Equal(t, store.LabelUnknown, state.Summary.Label)
	require.NotEqual(t, store.LabelOverloaded, state.Summary.Label)
}

// Full ordinary day: solid sleep, low stress, decent energy, complete
// nutrition, most habits done, no training.
func TestTypicalDayClassifiesStable(t *testing.T) {
	eng, db := testEngine(t)
	day := "2025-03-01"

	require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricSleep, RecordedAt: ts(t, day, 7), Value: fptr(7.5)}))
	require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricStress, RecordedAt: ts(t, day, 9), Value: fptr(3)}))
	require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricEnergy, RecordedAt: ts(t, day, 9), Value: fptr(6)}))
	require.NoError(t, db.AddNutritionLog(&store.NutritionLog{
		UserID: "u1", RecordedAt: ts(t, day, 13), Calories: 2200, Protein: 130, Carbs: 240, Fat: 75, Water: 1800,
	}))
	for i := 0; i < 6; i++ {
		require.NoError(t, db.AddHabitLog(&store.HabitLog{
			UserID: "u1", RecordedAt: ts(t, day, 8) + int64(i), Habit: "habit", Completed: i < 5,
		}))
	}

	state, err := eng.CompileDaily(context.Background(), "u1", day)
	require.NoError(t, err)
	require.Equal(t, store.LabelStable, state.Summary.Label)

	require.InDelta(t, 0.7, *state.Signal(store.SignalSleep).Value, 1e-9)
	require.InDelta(t, 1.0, *state.Signal(store.SignalNutrition).Value, 1e-9)
	require.InDelta(t, 5.0/6.0, *state.Signal(store.SignalHabits).Value, 1e-9)
	require.Equal(t, 0.9, state.Signal(store.SignalNutrition).Confidence)
	require.Equal(t, 0.8, state.Signal(store.SignalHabits).Confidence)
}

func TestCompileDailyIdempotent(t *testing.T) {
	eng, db := testEngine(t)
	day := "2025-03-01"

	require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricSleep, RecordedAt: ts(t, day, 7), Value: fptr(6)}))
	require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricEnergy, RecordedAt: ts(t, day, 10), Value: fptr(5)}))
	require.NoError(t, db.AddJournalEntry(&store.JournalEntry{UserID: "u1", RecordedAt: ts(t, day, 21), Body: "long day"}))

	first, err := eng.CompileDaily(context.Background(), "u1", day)
	require.NoError(t, err)
	second, err := eng.CompileDaily(context.Background(), "u1", day)
	require.NoError(t, err)

	require.Equal(t, first.Signals, second.Signals)
	require.Equal(t, first.Summary, second.Summary)
	require.Equal(t, first.InputsHash, second.InputsHash)
	require.Equal(t, first.EvidenceIDs, second.EvidenceIDs)
}

func TestCompileDailyBoundsToCalendarDay(t *testing.T) {
	eng, db := testEngine(t)

	// Recorded the evening before and the morning after.
	require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricSleep, RecordedAt: ts(t, "2025-02-28", 23), Value: fptr(8)}))
	require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricSleep, RecordedAt: ts(t, "2025-03-02", 1), Value: fptr(4)}))

	state, err := eng.CompileDaily(context.Background(), "u1", "2025-03-01")
	require.NoError(t, err)
	require.Nil(t, state.Signal(store.SignalSleep).Value)
}

func TestMoodNumericBeatsCategory(t *testing.T) {
	eng, db := testEngine(t)
	day := "2025-03-01"

	require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricMood, RecordedAt: ts(t, day, 9), Value: fptr(7)}))

	state, err := eng.CompileDaily(context.Background(), "u1", day)
	require.NoError(t, err)
	mood := state.Signal(store.SignalMood)
	require.InDelta(t, 6.0/9.0, *mood.Value, 1e-9)
	require.Equal(t, 1.0, mood.Confidence)
}

func TestMoodCategoryAnchors(t *testing.T) {
	eng, db := testEngine(t)

	cases := map[string]float64{
		"very_low": 0.10, "low": 0.25, "neutral": 0.50, "good": 0.75, "great": 0.90,
	}
	i := 0
	for label, want := range cases {
		day := AddDays("2025-03-01", i)
		i++
		require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricMood, RecordedAt: ts(t, day, 9), Label: label}))

		state, err := eng.CompileDaily(context.Background(), "u1", day)
		require.NoError(t, err)
		mood := state.Signal(store.SignalMood)
		require.InDelta(t, want, *mood.Value, 1e-9, "label %s", label)
		require.Equal(t, 0.6, mood.Confidence, "label %s", label)
	}
}

func TestTrainingLoadConfidenceTiers(t *testing.T) {
	eng, db := testEngine(t)

	// Both dimensions recorded.
	require.NoError(t, db.AddWorkout(&store.Workout{UserID: "u1", RecordedAt: ts(t, "2025-03-01", 17), Activity: "run", Intensity: fptr(8), Fatigue: fptr(6)}))
	state, err := eng.CompileDaily(context.Background(), "u1", "2025-03-01")
	require.NoError(t, err)
	tl := state.Signal(store.SignalTrainingLoad)
	require.Equal(t, 0.9, tl.Confidence)
	require.InDelta(t, (7.0-1)/9, *tl.Value, 1e-9) // mean(8,6)=7

	// One dimension.
	require.NoError(t, db.AddWorkout(&store.Workout{UserID: "u1", RecordedAt: ts(t, "2025-03-02", 17), Activity: "lift", Intensity: fptr(9)}))
	state, err = eng.CompileDaily(context.Background(), "u1", "2025-03-02")
	require.NoError(t, err)
	require.Equal(t, 0.6, state.Signal(store.SignalTrainingLoad).Confidence)

	// A workout with neither dimension carries nothing.
	require.NoError(t, db.AddWorkout(&store.Workout{UserID: "u1", RecordedAt: ts(t, "2025-03-03", 17), Activity: "walk"}))
	state, err = eng.CompileDaily(context.Background(), "u1", "2025-03-03")
	require.NoError(t, err)
	require.Nil(t, state.Signal(store.SignalTrainingLoad).Value)
}

func TestNutritionCompletenessTiers(t *testing.T) {
	eng, db := testEngine(t)

	// Empty log: value 0, confidence 0.4.
	require.NoError(t, db.AddNutritionLog(&store.NutritionLog{UserID: "u1", RecordedAt: ts(t, "2025-03-01", 12)}))
	state, err := eng.CompileDaily(context.Background(), "u1", "2025-03-01")
	require.NoError(t, err)
	n := state.Signal(store.SignalNutrition)
	require.Equal(t, 0.0, *n.Value)
	require.Equal(t, 0.4, n.Confidence)

	// One field only.
	require.NoError(t, db.AddNutritionLog(&store.NutritionLog{UserID: "u1", RecordedAt: ts(t, "2025-03-02", 12), Water: 1500}))
	state, err = eng.CompileDaily(context.Background(), "u1", "2025-03-02")
	require.NoError(t, err)
	n = state.Signal(store.SignalNutrition)
	require.InDelta(t, 0.2, *n.Value, 1e-9)
	require.Equal(t, 0.6, n.Confidence)

	// Calories plus two macros.
	require.NoError(t, db.AddNutritionLog(&store.NutritionLog{UserID: "u1", RecordedAt: ts(t, "2025-03-03", 12), Calories: 1900, Protein: 100, Carbs: 200}))
	state, err = eng.CompileDaily(context.Background(), "u1", "2025-03-03")
	require.NoError(t, err)
	n = state.Signal(store.SignalNutrition)
	require.InDelta(t, 0.6, *n.Value, 1e-9)
	require.Equal(t, 0.9, n.Confidence)
}

func TestHabitConfidenceLadder(t *testing.T) {
	eng, db := testEngine(t)

	addHabits := func(day string, count int) {
		for i := 0; i < count; i++ {
			require.NoError(t, db.AddHabitLog(&store.HabitLog{
				UserID: "u1", RecordedAt: ts(t, day, 8) + int64(i), Habit: "h", Completed: true,
			}))
		}
	}

	addHabits("2025-03-01", 1)
	addHabits("2025-03-02", 2)
	addHabits("2025-03-03", 6)

	wantConf := map[string]float64{"2025-03-01": 0.35, "2025-03-02": 0.55, "2025-03-03": 0.8}
	for day, want := range wantConf {
		state, err := eng.CompileDaily(context.Background(), "u1", day)
		require.NoError(t, err)
		require.Equal(t, want, state.Signal(store.SignalHabits).Confidence, "day %s", day)
	}
}

func TestContextSignals(t *testing.T) {
	eng, db := testEngine(t)
	day := "2025-03-01"

	for i, sev := range []float64{4, 6, 8} {
		require.NoError(t, db.AddSymptomLog(&store.SymptomLog{
			UserID: "u1", RecordedAt: ts(t, day, 9) + int64(i), Name: "ache", Severity: sev,
		}))
	}
	require.NoError(t, db.AddLabReport(&store.LabReport{UserID: "u1", RecordedAt: ts(t, day, 10), Panel: "cbc", FlaggedCount: 5}))
	require.NoError(t, db.AddJournalEntry(&store.JournalEntry{UserID: "u1", RecordedAt: ts(t, day, 21), Body: string(make([]byte, 1400))}))

	state, err := eng.CompileDaily(context.Background(), "u1", day)
	require.NoError(t, err)

	sym := state.Signal(store.SignalSymptoms)
	require.InDelta(t, 0.6, *sym.Value, 1e-9)
	require.Equal(t, 0.75, sym.Confidence)

	labs := state.Signal(store.SignalLabs)
	require.Equal(t, 1.0, *labs.Value) // flagged count saturates at 3
	require.Equal(t, 0.55, labs.Confidence)

	refl := state.Signal(store.SignalReflection)
	require.Equal(t, 1.0, *refl.Value) // 1400 chars saturates 700
	require.Equal(t, 0.4, refl.Confidence)
}

func TestEnsureDailyLazyAndForced(t *testing.T) {
	eng, db := testEngine(t)
	day := "2025-03-01"

	state, err := eng.EnsureDaily(context.Background(), "u1", day, false)
	require.NoError(t, err)
	require.Equal(t, store.LabelUnknown, state.Summary.Label)

	// A late-arriving log changes nothing until forced.
	require.NoError(t, db.AddMetricLog(&store.MetricLog{UserID: "u1", Kind: store.MetricSleep, RecordedAt: ts(t, day, 7), Value: fptr(8)}))

	state, err = eng.EnsureDaily(context.Background(), "u1", day, false)
	require.NoError(t, err)
	require.Nil(t, state.Signal(store.SignalSleep).Value)

	state, err = eng.EnsureDaily(context.Background(), "u1", day, true)
	require.NoError(t, err)
	require.NotNil(t, state.Signal(store.SignalSleep).Value)
}

func fptr(v float64) *float64 { return &v }
