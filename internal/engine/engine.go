// Package engine implements the temporal-reasoning pipeline: daily state
// compilation, pattern mining, identity synthesis, override attenuation,
// and the insight gate. All computation is scoped to one (user, dayKey).
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/quietloop/wellspring/internal/store"
)

// Engine owns the pipeline. Stages run in dependency order: compiler,
// pattern engine, identity engine. The gatekeeper and outlook are
// read-only and never scheduled.
type Engine struct {
	db  *store.DB
	log *zap.Logger
	loc *time.Location

	// recomputes for the same (user, dayKey) are coalesced; a full
	// idempotent replace makes duplicates safe either way.
	group singleflight.Group
	wg    sync.WaitGroup
}

// New creates an Engine computing day boundaries in the given location.
// A nil location falls back to time.Local.
func New(db *store.DB, log *zap.Logger, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{db: db, log: log, loc: loc}
}

// Location returns the engine's calendar-day location.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// ScheduleRecompute runs the full pipeline for (user, dayKey) in the
// background. Fire-and-forget: failures are logged and dropped, never
// surfaced to the triggering write.
func (e *Engine) ScheduleRecompute(userID, dayKey string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		key := userID + "@" + dayKey
		_, err, _ := e.group.Do(key, func() (any, error) {
			return nil, e.Recompute(context.Background(), userID, dayKey)
		})
		if err != nil {
			e.log.Warn("background recompute failed",
				zap.String("user", userID),
				zap.String("day", dayKey),
				zap.Error(err))
		}
	}()
}

// Recompute runs the pipeline synchronously: compile the daily state,
// then the pattern engine for the same day, then the identity engine,
// which only runs when a pattern actually mutated.
func (e *Engine) Recompute(ctx context.Context, userID, dayKey string) error {
	state, err := e.CompileDaily(ctx, userID, dayKey)
	if err != nil {
		return err
	}
	e.log.Debug("daily state compiled",
		zap.String("user", userID),
		zap.String("day", dayKey),
		zap.String("label", state.Summary.Label),
		zap.Float64("confidence", state.Summary.Confidence))

	mutated, err := e.RecomputePatterns(ctx, userID, dayKey)
	if err != nil {
		return err
	}
	if !mutated {
		// Identity decay is only re-evaluated when a pattern mutated
		// this cycle; a quiet pattern set leaves identities untouched.
		return nil
	}
	return e.RecomputeIdentities(ctx, userID, dayKey)
}

// Wait blocks until all scheduled background work has drained. Test and
// shutdown hook.
func (e *Engine) Wait() {
	e.wg.Wait()
}
