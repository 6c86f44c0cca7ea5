package engine

import (
	"sort"
	"strings"

	"github.com/quietloop/wellspring/internal/store"
)

// patternSpec is one entry in the fixed v1 pattern catalogue. Evaluation
// goes through predicate functions rather than string matching so the
// catalogue stays exhaustive and testable.
type patternSpec struct {
	Conditions []string
	Effect     string
	Window     string
	// Category routes the spec to the matching override scope.
	Category string
	// Matches reports whether the condition holds on a day.
	Matches func(s *store.DailyState) bool
	// Effected reports whether the effect holds on the effect day
	// (same day, or the calendar-next day for next_day windows).
	Effected func(s *store.DailyState) bool
}

// Key builds the stable pattern key: window, sorted conditions, effect.
func (ps patternSpec) Key() string {
	conditions := append([]string(nil), ps.Conditions...)
	sort.Strings(conditions)
	return ps.Window + ":" + strings.Join(conditions, "+") + "=>" + ps.Effect
}

// patternCatalogue is the closed v1 vocabulary of condition->effect
// relationships the pattern engine mines for.
var patternCatalogue = []patternSpec{
	{
		Conditions: []string{"low_sleep"},
		Effect:     "low_energy",
		Window:     store.WindowNextDay,
		Category:   store.ScopeSleep,
		Matches:    func(s *store.DailyState) bool { return isLow(s.Signal(store.SignalSleep)) },
		Effected:   func(s *store.DailyState) bool { return isLow(s.Signal(store.SignalEnergy)) },
	},
	{
		Conditions: []string{"high_stress"},
		Effect:     "low_energy",
		Window:     store.WindowSameDay,
		Category:   store.ScopeStress,
		Matches:    func(s *store.DailyState) bool { return isHigh(s.Signal(store.SignalStress)) },
		Effected:   func(s *store.DailyState) bool { return isLow(s.Signal(store.SignalEnergy)) },
	},
	{
		Conditions: []string{"high_training_load"},
		Effect:     "next_day_fatigue",
		Window:     store.WindowNextDay,
		Category:   store.ScopeTraining,
		Matches:    func(s *store.DailyState) bool { return isHigh(s.Signal(store.SignalTrainingLoad)) },
		Effected:   func(s *store.DailyState) bool { return isLow(s.Signal(store.SignalEnergy)) },
	},
	{
		Conditions: []string{"low_nutrition"},
		Effect:     "low_energy",
		Window:     store.WindowSameDay,
		Category:   store.ScopeNutrition,
		Matches:    func(s *store.DailyState) bool { return isLow(s.Signal(store.SignalNutrition)) },
		Effected:   func(s *store.DailyState) bool { return isLow(s.Signal(store.SignalEnergy)) },
	},
}

// patternSpecByKey looks up a catalogue entry from a persisted pattern key.
func patternSpecByKey(key string) (patternSpec, bool) {
	for _, ps := range patternCatalogue {
		if ps.Key() == key {
			return ps, true
		}
	}
	return patternSpec{}, false
}

// Identity vocabulary keys.
const (
	IdentitySleepKeystone      = "sleep_keystone"
	IdentityStressSensitive    = "stress_sensitive"
	IdentityTrainingOverreach  = "training_overreach_risk"
	IdentityNutritionSensitive = "nutrition_sensitive"
)

// identitySpec is one entry in the fixed identity vocabulary.
type identitySpec struct {
	Key   string
	Claim string
	// Scope routes the identity to the matching override scope.
	Scope string
	// MinPatterns is how many stable supporting patterns promotion needs.
	MinPatterns int
	// Supports reports whether a pattern counts as support.
	Supports func(p store.Pattern) bool
	// MatchesToday gates insight delivery on today's daily state.
	MatchesToday func(s *store.DailyState) bool
}

var identityCatalogue = []identitySpec{
	{
		Key:         IdentitySleepKeystone,
		Claim:       "Sleep is a keystone input: short nights reliably cost this user next-day energy.",
		Scope:       store.ScopeSleep,
		MinPatterns: 2,
		Supports:    patternHasCondition("low_sleep"),
		MatchesToday: func(s *store.DailyState) bool {
			sleep := s.Signal(store.SignalSleep)
			return isLow(sleep) || (isLow(s.Signal(store.SignalEnergy)) && isMidOrLow(sleep))
		},
	},
	{
		Key:         IdentityStressSensitive,
		Claim:       "Elevated stress drags this user's energy down within the same day.",
		Scope:       store.ScopeStress,
		MinPatterns: 1,
		Supports:    patternHasCondition("high_stress"),
		MatchesToday: func(s *store.DailyState) bool {
			return isHigh(s.Signal(store.SignalStress))
		},
	},
	{
		Key:         IdentityTrainingOverreach,
		Claim:       "Hard training days tend to leave this user fatigued the following day.",
		Scope:       store.ScopeTraining,
		MinPatterns: 1,
		Supports:    patternHasCondition("high_training_load"),
		MatchesToday: func(s *store.DailyState) bool {
			return isHigh(s.Signal(store.SignalTrainingLoad))
		},
	},
	{
		Key:         IdentityNutritionSensitive,
		Claim:       "Incomplete nutrition days sap this user's energy.",
		Scope:       store.ScopeNutrition,
		MinPatterns: 1,
		Supports:    patternHasCondition("low_nutrition"),
		MatchesToday: func(s *store.DailyState) bool {
			return isLow(s.Signal(store.SignalNutrition))
		},
	},
}

func patternHasCondition(condition string) func(p store.Pattern) bool {
	return func(p store.Pattern) bool {
		for _, c := range p.Conditions {
			if c == condition {
				return true
			}
		}
		return false
	}
}

func identitySpecByKey(key string) (identitySpec, bool) {
	for _, is := range identityCatalogue {
		if is.Key == key {
			return is, true
		}
	}
	return identitySpec{}, false
}
