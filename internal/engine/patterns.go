package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/quietloop/wellspring/internal/store"
)

const (
	// lookbackDays bounds every pattern scan to a trailing window.
	lookbackDays = 40

	// minTriggerConfidence gates the whole pattern cycle on today's
	// daily state quality.
	minTriggerConfidence = 0.6

	// Qualification: kept support days must be spaced more than one day
	// apart, span at least two ISO weeks, and number at least three.
	minSupportDays = 3
	minISOWeeks    = 2

	// Decay kicks in once a pattern goes unobserved for this many days;
	// confidence then halves every 30 further days.
	decayGraceDays    = 10
	decayHalfLifeDays = 30

	// Confidence curve bounds.
	patternConfFloor   = 0.3
	patternConfCeiling = 0.85
)

// patternConfAt is the reinforcement curve: 0 with no support, then a
// log-saturating climb from 0.3 toward 0.85 over ~30 support days.
func patternConfAt(n int) float64 {
	if n <= 0 {
		return 0
	}
	c := patternConfFloor + 0.55*math.Log1p(math.Max(0, float64(n-2)))/math.Log1p(30)
	return math.Min(math.Max(c, patternConfFloor), patternConfCeiling)
}

// patternStatus is a pure function of confidence.
func patternStatus(confidence float64) string {
	switch {
	case confidence >= 0.6:
		return store.PatternActive
	case confidence >= 0.35:
		return store.PatternWeak
	default:
		return store.PatternRetired
	}
}

// RecomputePatterns scans the trailing window for every catalogue entry
// and reinforces or decays the user's pattern records. It reports whether
// any pattern row actually mutated. A missing, unknown, or low-confidence
// daily state for dayKey is a no-op, not an error.
func (e *Engine) RecomputePatterns(ctx context.Context, userID, dayKey string) (bool, error) {
	if _, err := ParseDayKey(dayKey); err != nil {
		return false, err
	}

	today, err := e.db.GetDailyState(userID, dayKey)
	if err != nil {
		return false, err
	}
	if today == nil || today.Summary.Label == store.LabelUnknown || today.Summary.Confidence < minTriggerConfidence {
		return false, nil
	}

	fromKey := AddDays(dayKey, -(lookbackDays - 1))
	window, err := e.db.DailyStatesBetween(userID, fromKey, dayKey)
	if err != nil {
		return false, err
	}
	byDay := make(map[string]*store.DailyState, len(window))
	for i := range window {
		byDay[window[i].DayKey] = &window[i]
	}

	overrideCache := make(map[string]float64)
	mutated := false
	for _, ps := range patternCatalogue {
		changed, err := e.recomputePattern(userID, dayKey, ps, byDay, overrideCache)
		if err != nil {
			return mutated, fmt.Errorf("pattern %s: %w", ps.Key(), err)
		}
		mutated = mutated || changed
	}
	return mutated, nil
}

// recomputePattern evaluates one catalogue entry against the window.
// Decay applies before reinforcement within the same cycle.
func (e *Engine) recomputePattern(userID, dayKey string, ps patternSpec, byDay map[string]*store.DailyState, attCache map[string]float64) (bool, error) {
	matching := matchingDays(ps, byDay)
	kept := applySpacing(matching)
	qualified := len(kept) >= minSupportDays && isoWeekSpan(kept) >= minISOWeeks

	existing, err := e.db.GetPattern(userID, ps.Key())
	if err != nil {
		return false, err
	}
	if existing == nil && !qualified {
		// Insufficient qualifying evidence is the expected common case.
		return false, nil
	}

	if existing == nil {
		existing = &store.Pattern{
			UserID:     userID,
			Key:        ps.Key(),
			Conditions: append([]string(nil), ps.Conditions...),
			Effect:     ps.Effect,
			Window:     ps.Window,
		}
	}

	before := *existing
	beforeSupport := len(existing.SupportDayKeys)

	// Decay first: a long-unobserved pattern loses confidence even in a
	// cycle that also reinforces it.
	if existing.LastObserved != "" {
		gap := DaysBetween(existing.LastObserved, dayKey)
		if gap > decayGraceDays {
			factor := math.Exp(-math.Ln2 / decayHalfLifeDays * float64(gap-decayGraceDays))
			existing.Confidence *= factor
			existing.DecayScore = 1 - factor
		}
	}

	if qualified {
		if err := e.reinforce(existing, ps, kept, attCache); err != nil {
			return false, err
		}
	}

	existing.Status = patternStatus(existing.Confidence)

	if !patternMutated(&before, existing, beforeSupport) {
		return false, nil
	}
	if err := e.db.SavePattern(existing); err != nil {
		return false, err
	}
	return true, nil
}

// reinforce applies new qualifying support days one at a time in sorted
// order. Each day's marginal confidence gain is scaled by that day's
// override attenuation, making the result path-dependent on override
// history.
func (e *Engine) reinforce(p *store.Pattern, ps patternSpec, kept []string, attCache map[string]float64) error {
	known := make(map[string]bool, len(p.SupportDayKeys))
	for _, d := range p.SupportDayKeys {
		known[d] = true
	}

	var fresh []string
	for _, d := range kept {
		if !known[d] {
			fresh = append(fresh, d)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	sort.Strings(fresh)

	merged := append([]string(nil), p.SupportDayKeys...)
	n := len(merged)
	conf := p.Confidence
	added := false
	for _, d := range fresh {
		// The spacing invariant holds over the whole persisted support
		// set, not just within one window's kept days.
		if adjacentTo(merged, d) {
			continue
		}
		n++
		gain := patternConfAt(n) - patternConfAt(n-1)

		att, ok := attCache[d+"/"+ps.Category]
		if !ok {
			var err error
			att, err = e.attenuationFor(p.UserID, d, ps.Category)
			if err != nil {
				return err
			}
			attCache[d+"/"+ps.Category] = att
		}
		conf += gain * att

		merged = append(merged, d)
		sort.Strings(merged)
		added = true
	}
	if !added {
		return nil
	}
	if conf > patternConfCeiling {
		conf = patternConfCeiling
	}

	p.SupportDayKeys = merged
	p.SupportCount = len(merged)
	p.Confidence = conf
	p.FirstObserved = merged[0]
	if last := merged[len(merged)-1]; last > p.LastObserved {
		p.LastObserved = last
	}
	return nil
}

// adjacentTo reports whether day sits within one calendar day of any
// member of the sorted support set.
func adjacentTo(sorted []string, day string) bool {
	for _, d := range sorted {
		gap := DaysBetween(d, day)
		if gap < 0 {
			gap = -gap
		}
		if gap <= 1 {
			return true
		}
	}
	return false
}

// matchingDays returns the sorted condition-days in the window where the
// spec's condition held and its effect landed. For next_day windows both
// the condition day and the calendar-next day must exist, be non-unknown,
// and clear the confidence gate; the effect is evaluated on the next day.
func matchingDays(ps patternSpec, byDay map[string]*store.DailyState) []string {
	var days []string
	for day, state := range byDay {
		if !usableState(state) || !ps.Matches(state) {
			continue
		}
		effectState := state
		if ps.Window == store.WindowNextDay {
			next := byDay[AddDays(day, 1)]
			if !usableState(next) {
				continue
			}
			effectState = next
		}
		if ps.Effected(effectState) {
			days = append(days, day)
		}
	}
	sort.Strings(days)
	return days
}

func usableState(s *store.DailyState) bool {
	return s != nil && s.Summary.Label != store.LabelUnknown && s.Summary.Confidence >= minTriggerConfidence
}

// applySpacing keeps a day only when it falls more than one day after the
// previously kept day, so back-to-back runs count once.
func applySpacing(sorted []string) []string {
	var kept []string
	for _, d := range sorted {
		if len(kept) > 0 && DaysBetween(kept[len(kept)-1], d) <= 1 {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

func isoWeekSpan(days []string) int {
	weeks := make(map[string]bool, len(days))
	for _, d := range days {
		weeks[ISOWeek(d)] = true
	}
	return len(weeks)
}

func patternMutated(before, after *store.Pattern, beforeSupport int) bool {
	return len(after.SupportDayKeys) != beforeSupport ||
		after.Confidence != before.Confidence ||
		after.Status != before.Status ||
		after.DecayScore != before.DecayScore ||
		after.LastObserved != before.LastObserved
}
