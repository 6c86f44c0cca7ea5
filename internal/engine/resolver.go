package engine

import "github.com/quietloop/wellspring/internal/store"

// attenuationFloor keeps overrides from silencing reinforcement entirely.
const attenuationFloor = 0.2

// Attenuation returns the damping factor in [0.2, 1.0] for one
// (dayKey, category) from the given override set. Overrides match when
// their day range contains dayKey and their scope is "all" or the
// category itself. The most damping match wins; 1.0 means no override.
func Attenuation(overrides []store.MemoryOverride, dayKey, category string) float64 {
	att := 1.0
	for _, o := range overrides {
		if dayKey < o.StartDayKey || dayKey > o.EndDayKey {
			continue
		}
		if o.Scope != store.ScopeAll && o.Scope != category {
			continue
		}
		remaining := 1 - o.Strength
		if remaining < att {
			att = remaining
		}
	}
	if att < attenuationFloor {
		att = attenuationFloor
	}
	return att
}

// attenuationFor is the DB-backed convenience used by the pattern and
// identity engines.
func (e *Engine) attenuationFor(userID, dayKey, category string) (float64, error) {
	overrides, err := e.db.OverridesCovering(userID, dayKey)
	if err != nil {
		return 1, err
	}
	return Attenuation(overrides, dayKey, category), nil
}
