package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestLatestMetricWins(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.AddMetricLog(&MetricLog{
		UserID: "u1", Kind: MetricStress, RecordedAt: 1000, Value: fptr(4),
	}))
	require.NoError(t, db.AddMetricLog(&MetricLog{
		UserID: "u1", Kind: MetricStress, RecordedAt: 2000, Value: fptr(8),
	}))

	m, err := db.LatestMetric("u1", MetricStress, 0, 5000)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, 8.0, *m.Value)

	// Window bounds are half-open: [start, end).
	m, err = db.LatestMetric("u1", MetricStress, 0, 2000)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, 4.0, *m.Value)
}

func TestLatestMetricMissing(t *testing.T) {
	db := testDB(t)

	m, err := db.LatestMetric("u1", MetricSleep, 0, 5000)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestMetricLogGeneratesID(t *testing.T) {
	db := testDB(t)

	m := &MetricLog{UserID: "u1", Kind: MetricMood, RecordedAt: 1000, Label: "good"}
	require.NoError(t, db.AddMetricLog(m))
	require.NotEmpty(t, m.ID)

	got, err := db.LatestMetric("u1", MetricMood, 0, 5000)
	require.NoError(t, err)
	require.Equal(t, m.ID, got.ID)
	require.Nil(t, got.Value)
	require.Equal(t, "good", got.Label)
}

func TestWorkoutsBetween(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.AddWorkout(&Workout{
		UserID: "u1", RecordedAt: 1000, Activity: "run", Intensity: fptr(7), Fatigue: fptr(6),
	}))
	require.NoError(t, db.AddWorkout(&Workout{
		UserID: "u1", RecordedAt: 2000, Activity: "lift", Intensity: fptr(8),
	}))
	require.NoError(t, db.AddWorkout(&Workout{
		UserID: "u2", RecordedAt: 1500, Activity: "swim",
	}))

	ws, err := db.WorkoutsBetween("u1", 0, 5000)
	require.NoError(t, err)
	require.Len(t, ws, 2)
	require.Equal(t, "run", ws[0].Activity)
	require.Nil(t, ws[1].Fatigue)
}

func TestHabitAndSymptomLogs(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.AddHabitLog(&HabitLog{UserID: "u1", RecordedAt: 1000, Habit: "meditate", Completed: true}))
	require.NoError(t, db.AddHabitLog(&HabitLog{UserID: "u1", RecordedAt: 1100, Habit: "read", Completed: false}))
	require.NoError(t, db.AddSymptomLog(&SymptomLog{UserID: "u1", RecordedAt: 1200, Name: "headache", Severity: 6}))

	hs, err := db.HabitLogsBetween("u1", 0, 5000)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	require.True(t, hs[0].Completed)
	require.False(t, hs[1].Completed)

	ss, err := db.SymptomsBetween("u1", 0, 5000)
	require.NoError(t, err)
	require.Len(t, ss, 1)
	require.Equal(t, 6.0, ss[0].Severity)
}

func TestJournalTruncation(t *testing.T) {
	db := testDB(t)

	big := make([]byte, maxJournalBodySize+500)
	for i := range big {
		big[i] = 'a'
	}
	require.NoError(t, db.AddJournalEntry(&JournalEntry{UserID: "u1", RecordedAt: 1000, Body: string(big)}))

	js, err := db.JournalEntriesBetween("u1", 0, 5000)
	require.NoError(t, err)
	require.Len(t, js, 1)
	require.Len(t, js[0].Body, maxJournalBodySize)
}

func TestNutritionAndLabs(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.AddNutritionLog(&NutritionLog{
		UserID: "u1", RecordedAt: 1000, Calories: 2200, Protein: 120, Carbs: 250, Fat: 70, Water: 2000,
	}))
	require.NoError(t, db.AddLabReport(&LabReport{UserID: "u1", RecordedAt: 1100, Panel: "metabolic", FlaggedCount: 2}))

	ns, err := db.NutritionLogsBetween("u1", 0, 5000)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	require.Equal(t, 2200.0, ns[0].Calories)

	ls, err := db.LabReportsBetween("u1", 0, 5000)
	require.NoError(t, err)
	require.Len(t, ls, 1)
	require.Equal(t, 2, ls[0].FlaggedCount)
}

func TestOverridesCovering(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.AddOverride(&MemoryOverride{
		UserID: "u1", StartDayKey: "2025-03-01", EndDayKey: "2025-03-10",
		Scope: ScopeSleep, Kind: "travel", Strength: 0.6,
	}))
	require.NoError(t, db.AddOverride(&MemoryOverride{
		UserID: "u1", StartDayKey: "2025-03-05", EndDayKey: "2025-03-06",
		Scope: ScopeAll, Kind: "illness", Strength: 0.8,
	}))

	os, err := db.OverridesCovering("u1", "2025-03-05")
	require.NoError(t, err)
	require.Len(t, os, 2)

	os, err = db.OverridesCovering("u1", "2025-03-09")
	require.NoError(t, err)
	require.Len(t, os, 1)
	require.Equal(t, ScopeSleep, os[0].Scope)

	os, err = db.OverridesCovering("u1", "2025-03-11")
	require.NoError(t, err)
	require.Empty(t, os)
}
