package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quietloop/wellspring/internal/store"
)

func ov(start, end, scope string, strength float64) store.MemoryOverride {
	return store.MemoryOverride{StartDayKey: start, EndDayKey: end, Scope: scope, Strength: strength}
}

func TestAttenuationNoOverrides(t *testing.T) {
	require.Equal(t, 1.0, Attenuation(nil, "2025-03-01", store.ScopeSleep))
}

func TestAttenuationDayRange(t *testing.T) {
	set := []store.MemoryOverride{ov("2025-03-05", "2025-03-10", store.ScopeAll, 0.5)}

	require.Equal(t, 1.0, Attenuation(set, "2025-03-04", store.ScopeSleep))
	require.Equal(t, 0.5, Attenuation(set, "2025-03-05", store.ScopeSleep), "range is inclusive")
	require.Equal(t, 0.5, Attenuation(set, "2025-03-10", store.ScopeSleep))
	require.Equal(t, 1.0, Attenuation(set, "2025-03-11", store.ScopeSleep))
}

func TestAttenuationScopeMatch(t *testing.T) {
	set := []store.MemoryOverride{ov("2025-03-01", "2025-03-31", store.ScopeSleep, 0.6)}

	require.InDelta(t, 0.4, Attenuation(set, "2025-03-15", store.ScopeSleep), 1e-9)
	require.Equal(t, 1.0, Attenuation(set, "2025-03-15", store.ScopeTraining), "other categories untouched")
}

func TestAttenuationStrongestMatchWins(t *testing.T) {
	set := []store.MemoryOverride{
		ov("2025-03-01", "2025-03-31", store.ScopeAll, 0.3),
		ov("2025-03-10", "2025-03-12", store.ScopeSleep, 0.7),
	}

	require.InDelta(t, 0.3, Attenuation(set, "2025-03-11", store.ScopeSleep), 1e-9)
	require.InDelta(t, 0.7, Attenuation(set, "2025-03-05", store.ScopeSleep), 1e-9)
}

func TestAttenuationFloor(t *testing.T) {
	set := []store.MemoryOverride{ov("2025-03-01", "2025-03-31", store.ScopeAll, 1)}
	require.Equal(t, 0.2, Attenuation(set, "2025-03-15", store.ScopeNutrition))

	set[0].Strength = 0.95
	require.Equal(t, 0.2, Attenuation(set, "2025-03-15", store.ScopeNutrition))
}
