package engine

import (
	"context"
	"sort"

	"github.com/quietloop/wellspring/internal/store"
)

// OutlookEntry ranks one likely next-day effect.
type OutlookEntry struct {
	PatternKey string  `json:"patternKey"`
	Effect     string  `json:"effect"`
	Confidence float64 `json:"confidence"`
}

// Outlook ranks tomorrow's likely effects from today's DailyState plus
// the user's active next_day patterns, without re-deriving anything. An
// empty result means nothing is confidently foreseeable.
func (e *Engine) Outlook(ctx context.Context, userID, dayKey string) ([]OutlookEntry, error) {
	if _, err := ParseDayKey(dayKey); err != nil {
		return nil, err
	}

	state, err := e.db.GetDailyState(userID, dayKey)
	if err != nil {
		return nil, err
	}
	if !usableState(state) {
		return nil, nil
	}

	patterns, err := e.db.ActivePatterns(userID)
	if err != nil {
		return nil, err
	}

	var out []OutlookEntry
	for _, p := range patterns {
		if p.Window != store.WindowNextDay {
			continue
		}
		ps, ok := patternSpecByKey(p.Key)
		if !ok || !ps.Matches(state) {
			continue
		}
		out = append(out, OutlookEntry{
			PatternKey: p.Key,
			Effect:     p.Effect,
			Confidence: p.Confidence,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out, nil
}
