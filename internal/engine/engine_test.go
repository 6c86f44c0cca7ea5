package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quietloop/wellspring/internal/store"
)

// testEngine wires an in-memory store and a UTC engine so calendar-day
// math is deterministic.
func testEngine(t *testing.T) (*Engine, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, zap.NewNop(), time.UTC), db
}

// ts returns a millisecond timestamp at the given UTC hour of a day key.
func ts(t *testing.T, dayKey string, hour int) int64 {
	t.Helper()
	day, err := ParseDayKey(dayKey)
	require.NoError(t, err)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC).UnixMilli()
}

func sig(v, conf float64) store.Signal {
	return store.Signal{Value: &v, Confidence: conf}
}

// seedState persists a hand-built daily state, bypassing the compiler.
// Unspecified signals default to absent.
func seedState(t *testing.T, db *store.DB, userID, dayKey, label string, conf float64, signals map[string]store.Signal) {
	t.Helper()
	full := make(map[string]store.Signal, len(store.SignalNames))
	for _, name := range store.SignalNames {
		full[name] = signals[name]
	}
	require.NoError(t, db.SaveDailyState(&store.DailyState{
		UserID:         userID,
		DayKey:         dayKey,
		Signals:        full,
		Summary:        store.SummaryState{Label: label, Confidence: conf, Reasons: []string{}},
		EvidenceIDs:    []string{},
		ComputeVersion: ComputeVersion,
		InputsHash:     "seeded",
	}))
}

func TestParseDayKey(t *testing.T) {
	for _, bad := range []string{"", "2025-3-01", "20250301", "2025-13-01", "2025-02-30", "not-a-day"} {
		_, err := ParseDayKey(bad)
		require.ErrorIs(t, err, ErrInvalidDayKey, "key %q", bad)
	}

	day, err := ParseDayKey("2025-03-01")
	require.NoError(t, err)
	require.Equal(t, 2025, day.Year())
}

func TestDayArithmetic(t *testing.T) {
	require.Equal(t, "2025-03-02", AddDays("2025-03-01", 1))
	require.Equal(t, "2025-02-28", AddDays("2025-03-01", -1))
	require.Equal(t, 7, DaysBetween("2025-03-01", "2025-03-08"))
	require.Equal(t, -7, DaysBetween("2025-03-08", "2025-03-01"))

	// ISO week boundaries: Sunday and the following Monday differ.
	require.NotEqual(t, ISOWeek("2025-06-08"), ISOWeek("2025-06-09"))
	require.Equal(t, ISOWeek("2025-06-02"), ISOWeek("2025-06-08"))
}
