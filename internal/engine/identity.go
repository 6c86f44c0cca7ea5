package engine

import (
	"context"
	"fmt"

	"github.com/quietloop/wellspring/internal/store"
)

const (
	// Stability window for a supporting pattern: active, confident,
	// observed across at least two weeks, and seen recently.
	stablePatternMinConfidence = 0.65
	stablePatternMinSpanDays   = 14
	stablePatternMaxAgeDays    = 21

	// Promotion and movement dynamics. Identities form silently (only
	// above the creation bar) and always move slower than patterns.
	identityCreationBar = 0.35
	identityInitialCap  = 0.4
	identityConfCeiling = 0.8
	identityRaiseRate   = 0.02
	identityDecayRate   = 0.06
	identityRetireConf  = 0.25
	identityRetireGap   = 45
	identityActiveConf  = 0.55
	stabilityAgeSatDays = 180
	stabilityRecencySat = 90
)

// RecomputeIdentities re-derives the user's identity set from the
// currently persisted patterns. Supported identities creep toward an
// attenuated target; unsupported ones decay every cycle but are never
// deleted.
func (e *Engine) RecomputeIdentities(ctx context.Context, userID, dayKey string) error {
	if _, err := ParseDayKey(dayKey); err != nil {
		return err
	}

	patterns, err := e.db.ListPatterns(userID)
	if err != nil {
		return err
	}

	var stable []store.Pattern
	for _, p := range patterns {
		if isStablePattern(p, dayKey) {
			stable = append(stable, p)
		}
	}

	for _, is := range identityCatalogue {
		if err := e.recomputeIdentity(userID, dayKey, is, stable); err != nil {
			return fmt.Errorf("identity %s: %w", is.Key, err)
		}
	}
	return nil
}

func isStablePattern(p store.Pattern, dayKey string) bool {
	if p.Status != store.PatternActive || p.Confidence < stablePatternMinConfidence {
		return false
	}
	if p.FirstObserved == "" || p.LastObserved == "" {
		return false
	}
	if DaysBetween(p.FirstObserved, p.LastObserved) < stablePatternMinSpanDays {
		return false
	}
	return DaysBetween(p.LastObserved, dayKey) <= stablePatternMaxAgeDays
}

func (e *Engine) recomputeIdentity(userID, dayKey string, is identitySpec, stable []store.Pattern) error {
	var supporting []store.Pattern
	for _, p := range stable {
		if is.Supports(p) {
			supporting = append(supporting, p)
		}
	}
	supported := len(supporting) >= is.MinPatterns

	existing, err := e.db.GetIdentity(userID, is.Key)
	if err != nil {
		return err
	}
	if existing == nil && !supported {
		return nil
	}

	// Identity-level attenuation is the squared resolver factor: traits
	// should move even more cautiously than patterns during overrides.
	att, err := e.attenuationFor(userID, dayKey, is.Scope)
	if err != nil {
		return err
	}
	att *= att

	var target float64
	if supported {
		var confSum float64
		for _, p := range supporting {
			confSum += p.Confidence
		}
		target = clamp01(0.15 + 0.55*confSum/float64(len(supporting)))
	}
	attTarget := target * att

	if existing == nil {
		if attTarget < identityCreationBar {
			return nil
		}
		conf := attTarget
		if conf > identityInitialCap {
			conf = identityInitialCap
		}
		id := &store.Identity{
			UserID:             userID,
			Key:                is.Key,
			Claim:              is.Claim,
			SupportingPatterns: patternKeys(supporting),
			Confidence:         conf,
			FirstConfirmed:     dayKey,
			LastReinforced:     dayKey,
		}
		id.StabilityScore = att * rawStability(id, dayKey)
		id.Status = identityStatus(id, dayKey, true)
		return e.db.SaveIdentity(id)
	}

	if supported {
		existing.Confidence += identityRaiseRate * att * (attTarget - existing.Confidence)
		existing.SupportingPatterns = patternKeys(supporting)
		existing.LastReinforced = dayKey
	} else {
		existing.Confidence += identityDecayRate * (0 - existing.Confidence)
	}
	if existing.Confidence > identityConfCeiling {
		existing.Confidence = identityConfCeiling
	}
	if existing.Confidence < 0 {
		existing.Confidence = 0
	}

	// Stability is damped toward its raw value instead of jumping.
	raw := rawStability(existing, dayKey)
	existing.StabilityScore += att * (raw - existing.StabilityScore)

	existing.Status = identityStatus(existing, dayKey, supported)
	return e.db.SaveIdentity(existing)
}

// rawStability blends trait age, reinforcement recency, and confidence.
// Age saturates around 180 days, recency around 90.
func rawStability(id *store.Identity, dayKey string) float64 {
	age := float64(DaysBetween(id.FirstConfirmed, dayKey))
	ageFactor := clamp01(age / stabilityAgeSatDays)

	sinceReinforced := float64(DaysBetween(id.LastReinforced, dayKey))
	recencyFactor := clamp01(1 - sinceReinforced/stabilityRecencySat)

	return 0.5*ageFactor + 0.3*recencyFactor + 0.2*id.Confidence
}

func identityStatus(id *store.Identity, dayKey string, supported bool) string {
	if supported && id.Confidence >= identityActiveConf {
		return store.IdentityActive
	}
	if id.Confidence < identityRetireConf && !supported && DaysBetween(id.LastReinforced, dayKey) > identityRetireGap {
		return store.IdentityRetired
	}
	return store.IdentityFading
}

func patternKeys(patterns []store.Pattern) []string {
	keys := make([]string, 0, len(patterns))
	for _, p := range patterns {
		keys = append(keys, p.Key)
	}
	return keys
}
