package engine

import (
	"context"
	"fmt"

	"github.com/quietloop/wellspring/internal/store"
)

// Gate decisions, rarest last. Silence is the safe default, not a
// failure mode.
const (
	DecisionSilent  = "silent"
	DecisionReflect = "reflect"
	DecisionInsight = "insight"
)

// Decision sources.
const (
	SourceDaily    = "daily"
	SourcePattern  = "pattern"
	SourceIdentity = "identity"
)

// Speech tones the downstream renderer may use.
const (
	ToneMirror  = "mirror"
	ToneNeutral = "neutral"
)

const (
	gateMinDailyConfidence    = 0.6
	insightMinDailyConfidence = 0.7
	insightMinIdentityConf    = 0.6
)

// GateDecision is the transient verdict on whether the assistant may
// comment on a user's day.
type GateDecision struct {
	Decision   string  `json:"decision"`
	ReasonKey  string  `json:"reasonKey"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// InsightPayload is the machine-checkable speech constraint derived from
// a decision. It never carries generated text.
type InsightPayload struct {
	Level           string  `json:"level"`
	ReasonKey       string  `json:"reasonKey"`
	Source          string  `json:"source"`
	AllowedTone     string  `json:"allowedTone"`
	MaxSentences    int     `json:"maxSentences"`
	MustAskQuestion bool    `json:"mustAskQuestion"`
	Confidence      float64 `json:"confidence"`
}

// Gate evaluates the insight ladder for (user, dayKey). Read-only and
// side-effect-free; it always returns a decision and never errors for
// business reasons. A racing background recompute is tolerated; a
// stale-but-valid read beats blocking.
func (e *Engine) Gate(ctx context.Context, userID, dayKey string) (GateDecision, error) {
	if _, err := ParseDayKey(dayKey); err != nil {
		return silent("invalid_day_key"), err
	}

	state, err := e.db.GetDailyState(userID, dayKey)
	if err != nil {
		return silent("state_unavailable"), err
	}
	if state == nil {
		return silent("no_daily_state"), nil
	}
	if state.Summary.Label == store.LabelUnknown {
		return silent("unknown_state"), nil
	}
	if state.Summary.Confidence < gateMinDailyConfidence {
		return silent("low_daily_confidence"), nil
	}

	activePatterns, err := e.db.ActivePatterns(userID)
	if err != nil {
		return silent("state_unavailable"), err
	}

	if state.Summary.Confidence >= insightMinDailyConfidence {
		if d, ok := e.insightDecision(userID, state, activePatterns); ok {
			return d, nil
		}
	}

	if len(activePatterns) > 0 {
		best := activePatterns[0] // highest confidence first
		conf := state.Summary.Confidence
		if best.Confidence < conf {
			conf = best.Confidence
		}
		return GateDecision{
			Decision:   DecisionReflect,
			ReasonKey:  best.Key,
			Confidence: conf,
			Source:     SourcePattern,
		}, nil
	}

	return silent("no_active_patterns"), nil
}

// insightDecision looks for the highest-confidence active identity that
// is confident enough, fully backed by still-active patterns, and whose
// trait actually matches today's state.
func (e *Engine) insightDecision(userID string, state *store.DailyState, activePatterns []store.Pattern) (GateDecision, bool) {
	identities, err := e.db.ActiveIdentities(userID)
	if err != nil || len(identities) == 0 {
		return GateDecision{}, false
	}

	activeKeys := make(map[string]bool, len(activePatterns))
	for _, p := range activePatterns {
		activeKeys[p.Key] = true
	}

	for _, id := range identities { // highest confidence first
		if id.Confidence < insightMinIdentityConf {
			continue
		}
		is, ok := identitySpecByKey(id.Key)
		if !ok {
			continue
		}
		if !allActive(id.SupportingPatterns, activeKeys) {
			continue
		}
		if !is.MatchesToday(state) {
			continue
		}
		return GateDecision{
			Decision:   DecisionInsight,
			ReasonKey:  id.Key,
			Confidence: id.Confidence,
			Source:     SourceIdentity,
		}, true
	}
	return GateDecision{}, false
}

func allActive(keys []string, active map[string]bool) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !active[k] {
			return false
		}
	}
	return true
}

func silent(reasonKey string) GateDecision {
	return GateDecision{
		Decision:   DecisionSilent,
		ReasonKey:  reasonKey,
		Confidence: 0,
		Source:     SourceDaily,
	}
}

// BuildPayload fixes the speech envelope for a decision: reflect gets a
// single mirrored sentence that must end in a question, insight gets at
// most two neutral sentences with no forced question. Non-silent
// decisions missing a reason key or carrying an invalid source are
// rejected as a programming error, not a business outcome.
func BuildPayload(d GateDecision) (InsightPayload, error) {
	switch d.Source {
	case SourceDaily, SourcePattern, SourceIdentity:
	default:
		return InsightPayload{}, fmt.Errorf("invalid decision source %q", d.Source)
	}

	p := InsightPayload{
		Level:      d.Decision,
		ReasonKey:  d.ReasonKey,
		Source:     d.Source,
		Confidence: d.Confidence,
	}
	switch d.Decision {
	case DecisionSilent:
		return p, nil
	case DecisionReflect:
		if d.ReasonKey == "" {
			return InsightPayload{}, fmt.Errorf("reflect decision missing reason key")
		}
		p.AllowedTone = ToneMirror
		p.MaxSentences = 1
		p.MustAskQuestion = true
		return p, nil
	case DecisionInsight:
		if d.ReasonKey == "" {
			return InsightPayload{}, fmt.Errorf("insight decision missing reason key")
		}
		p.AllowedTone = ToneNeutral
		p.MaxSentences = 2
		p.MustAskQuestion = false
		return p, nil
	default:
		return InsightPayload{}, fmt.Errorf("invalid decision %q", d.Decision)
	}
}
