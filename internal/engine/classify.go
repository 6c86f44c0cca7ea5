package engine

import "github.com/quietloop/wellspring/internal/store"

// Core signals drive the summary classification; context signals
// (symptoms, labs, reflection) never do.
var coreSignals = []string{
	store.SignalSleep, store.SignalStress, store.SignalEnergy,
	store.SignalTrainingLoad, store.SignalNutrition, store.SignalHabits,
}

// Banding thresholds. A signal only counts in a band when its value is
// present and its confidence clears minBandConfidence.
const (
	minBandConfidence = 0.6
	lowCeiling        = 0.35
	okFloor           = 0.55
	highFloor         = 0.7
)

func isLow(s store.Signal) bool {
	return s.Value != nil && s.Confidence >= minBandConfidence && *s.Value <= lowCeiling
}

func isHigh(s store.Signal) bool {
	return s.Value != nil && s.Confidence >= minBandConfidence && *s.Value >= highFloor
}

func isOK(s store.Signal) bool {
	return s.Value != nil && s.Confidence >= minBandConfidence && *s.Value >= okFloor
}

func isMidOrLow(s store.Signal) bool {
	return s.Value != nil && s.Confidence >= minBandConfidence && *s.Value <= okFloor
}

// classify derives the summary state from the core signals. First match
// wins: overloaded, depleted, recovering, stable. Days with too little
// confident evidence stay unknown.
func classify(signals map[string]store.Signal) store.SummaryState {
	var confident int
	var confSum float64
	for _, name := range coreSignals {
		s := signals[name]
		confSum += s.Confidence
		if s.Value != nil && s.Confidence >= minBandConfidence {
			confident++
		}
	}
	confidence := confSum / float64(len(coreSignals))

	if confident < 2 || confidence < 0.5 {
		return store.SummaryState{
			Label:      store.LabelUnknown,
			Confidence: confidence,
			Reasons:    []string{"insufficient_confident_signals"},
		}
	}

	sleep := signals[store.SignalSleep]
	stress := signals[store.SignalStress]
	energy := signals[store.SignalEnergy]
	training := signals[store.SignalTrainingLoad]
	nutrition := signals[store.SignalNutrition]

	var label string
	var reasons []string
	switch {
	case isHigh(stress) && (isLow(sleep) || isLow(energy)) || isHigh(stress) && isHigh(training):
		label = store.LabelOverloaded
		reasons = appendReason(reasons, "high_stress")
		if isLow(sleep) {
			reasons = appendReason(reasons, "low_sleep")
		}
		if isLow(energy) {
			reasons = appendReason(reasons, "low_energy")
		}
		if isHigh(training) {
			reasons = appendReason(reasons, "high_training_load")
		}

	case isLow(energy) && isLow(sleep) || isHigh(training) && isLow(energy) || isLow(nutrition) && isLow(energy):
		label = store.LabelDepleted
		reasons = appendReason(reasons, "low_energy")
		if isLow(sleep) {
			reasons = appendReason(reasons, "low_sleep")
		}
		if isHigh(training) {
			reasons = appendReason(reasons, "high_training_load")
		}
		if isLow(nutrition) {
			reasons = appendReason(reasons, "low_nutrition")
		}

	case isOK(sleep) && isLow(stress) && isMidOrLow(energy) && !isHigh(training):
		label = store.LabelRecovering
		reasons = appendReason(reasons, "sleep_ok")
		reasons = appendReason(reasons, "low_stress")
		reasons = appendReason(reasons, "settled_energy")

	default:
		label = store.LabelStable
		reasons = appendReason(reasons, "no_strain_detected")
	}

	return store.SummaryState{Label: label, Confidence: confidence, Reasons: reasons}
}

// appendReason caps the reason list at four tags.
func appendReason(reasons []string, tag string) []string {
	if len(reasons) >= 4 {
		return reasons
	}
	return append(reasons, tag)
}
