package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quietloop/wellspring/internal/store"
)

func TestClassifyBands(t *testing.T) {
	require.True(t, isLow(sig(0.35, 0.6)))
	require.False(t, isLow(sig(0.36, 1)))
	require.False(t, isLow(sig(0.2, 0.59)), "confidence gate")
	require.False(t, isLow(store.Signal{}), "missing value")

	require.True(t, isHigh(sig(0.7, 0.6)))
	require.False(t, isHigh(sig(0.69, 1)))

	require.True(t, isOK(sig(0.55, 1)))
	require.True(t, isMidOrLow(sig(0.55, 1)), "bands overlap at the boundary")
	require.False(t, isMidOrLow(sig(0.56, 1)))
}

func TestClassifyUnknownOnThinEvidence(t *testing.T) {
	// One confident core signal is not enough.
	summary := classify(map[string]store.Signal{
		store.SignalStress: sig(0.8, 1),
	})
	require.Equal(t, store.LabelUnknown, summary.Label)
	require.Equal(t, []string{"insufficient_confident_signals"}, summary.Reasons)

	// Two confident signals but the mean core confidence is too low.
	summary = classify(map[string]store.Signal{
		store.SignalStress: sig(0.8, 0.6),
		store.SignalEnergy: sig(0.2, 0.6),
	})
	require.Equal(t, store.LabelUnknown, summary.Label)
	require.Less(t, summary.Confidence, 0.5)
}

func TestClassifyContextSignalsNeverDrive(t *testing.T) {
	// Severe symptoms and flagged labs alone cannot produce a label.
	summary := classify(map[string]store.Signal{
		store.SignalSymptoms: sig(0.9, 0.75),
		store.SignalLabs:     sig(1, 0.55),
	})
	require.Equal(t, store.LabelUnknown, summary.Label)
}

func TestClassifyOverloaded(t *testing.T) {
	summary := classify(map[string]store.Signal{
		store.SignalStress: sig(0.8, 1),
		store.SignalSleep:  sig(0.2, 1),
		store.SignalEnergy: sig(0.3, 1),
	})
	require.Equal(t, store.LabelOverloaded, summary.Label)
	require.Equal(t, []string{"high_stress", "low_sleep", "low_energy"}, summary.Reasons)

	// High stress with high training load, sleep fine.
	summary = classify(map[string]store.Signal{
		store.SignalStress:       sig(0.9, 1),
		store.SignalSleep:        sig(0.7, 1),
		store.SignalTrainingLoad: sig(0.8, 0.9),
	})
	require.Equal(t, store.LabelOverloaded, summary.Label)
	require.Contains(t, summary.Reasons, "high_training_load")
}

func TestClassifyDepleted(t *testing.T) {
	summary := classify(map[string]store.Signal{
		store.SignalSleep:  sig(0.2, 1),
		store.SignalEnergy: sig(0.25, 1),
		store.SignalStress: sig(0.4, 1),
	})
	require.Equal(t, store.LabelDepleted, summary.Label)
	require.Equal(t, "low_energy", summary.Reasons[0])

	summary = classify(map[string]store.Signal{
		store.SignalEnergy:    sig(0.3, 1),
		store.SignalNutrition: sig(0.2, 0.9),
		store.SignalSleep:     sig(0.6, 1),
	})
	require.Equal(t, store.LabelDepleted, summary.Label)
	require.Contains(t, summary.Reasons, "low_nutrition")
}

func TestClassifyOverloadedWinsOverDepleted(t *testing.T) {
	// Both ladders match; the first rung wins.
	summary := classify(map[string]store.Signal{
		store.SignalStress: sig(0.9, 1),
		store.SignalSleep:  sig(0.1, 1),
		store.SignalEnergy: sig(0.1, 1),
	})
	require.Equal(t, store.LabelOverloaded, summary.Label)
}

func TestClassifyRecovering(t *testing.T) {
	summary := classify(map[string]store.Signal{
		store.SignalSleep:  sig(0.7, 1),
		store.SignalStress: sig(0.2, 1),
		store.SignalEnergy: sig(0.45, 1),
	})
	require.Equal(t, store.LabelRecovering, summary.Label)
	require.Equal(t, []string{"sleep_ok", "low_stress", "settled_energy"}, summary.Reasons)

	// A hard session the same day blocks the recovering read.
	summary = classify(map[string]store.Signal{
		store.SignalSleep:        sig(0.7, 1),
		store.SignalStress:       sig(0.2, 1),
		store.SignalEnergy:       sig(0.45, 1),
		store.SignalTrainingLoad: sig(0.85, 0.9),
	})
	require.NotEqual(t, store.LabelRecovering, summary.Label)
}

func TestClassifyStableFallback(t *testing.T) {
	summary := classify(map[string]store.Signal{
		store.SignalSleep:  sig(0.6, 1),
		store.SignalStress: sig(0.5, 1),
		store.SignalEnergy: sig(0.6, 1),
	})
	require.Equal(t, store.LabelStable, summary.Label)
	require.Equal(t, []string{"no_strain_detected"}, summary.Reasons)
}

func TestClassifyConfidenceIsMeanOfCore(t *testing.T) {
	summary := classify(map[string]store.Signal{
		store.SignalSleep:  sig(0.6, 1),
		store.SignalStress: sig(0.5, 1),
		store.SignalEnergy: sig(0.6, 1),
	})
	require.InDelta(t, 0.5, summary.Confidence, 1e-9) // 3 of 6 core at conf 1
}
