package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/quietloop/wellspring/internal/engine"
	"github.com/quietloop/wellspring/internal/store"
)

// ingested persists one raw-log row via save, then fires the background
// recompute for the record's local day. Write success never depends on
// the recompute.
func (s *Server) ingested(w http.ResponseWriter, userID string, recordedAt int64, save func() (string, error)) {
	id, err := save()
	if err != nil {
		s.log.Error("ingest failed", zap.String("user", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "write failed")
		return
	}

	dayKey := engine.DayKeyOf(time.UnixMilli(recordedAt), s.engine.Location())
	s.engine.ScheduleRecompute(userID, dayKey)

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":      id,
		"day_key": dayKey,
		"status":  "ok",
	})
}

func recordedAtOrNow(ms int64) int64 {
	if ms == 0 {
		return time.Now().UnixMilli()
	}
	return ms
}

func (s *Server) handleAddMetric(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		Kind       string   `json:"kind"`
		RecordedAt int64    `json:"recorded_at"`
		Value      *float64 `json:"value"`
		Label      string   `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	switch req.Kind {
	case store.MetricMood, store.MetricSleep, store.MetricStress, store.MetricEnergy:
	default:
		writeError(w, http.StatusBadRequest, "kind must be mood, sleep, stress, or energy")
		return
	}

	m := &store.MetricLog{
		UserID:     userID,
		Kind:       req.Kind,
		RecordedAt: recordedAtOrNow(req.RecordedAt),
		Value:      req.Value,
		Label:      req.Label,
	}
	s.ingested(w, userID, m.RecordedAt, func() (string, error) { err := s.db.AddMetricLog(m); return m.ID, err })
}

func (s *Server) handleAddWorkout(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		RecordedAt int64    `json:"recorded_at"`
		Activity   string   `json:"activity"`
		Intensity  *float64 `json:"intensity"`
		Fatigue    *float64 `json:"fatigue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	wk := &store.Workout{
		UserID:     userID,
		RecordedAt: recordedAtOrNow(req.RecordedAt),
		Activity:   req.Activity,
		Intensity:  req.Intensity,
		Fatigue:    req.Fatigue,
	}
	s.ingested(w, userID, wk.RecordedAt, func() (string, error) { err := s.db.AddWorkout(wk); return wk.ID, err })
}

func (s *Server) handleAddHabit(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		RecordedAt int64  `json:"recorded_at"`
		Habit      string `json:"habit"`
		Completed  bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Habit == "" {
		writeError(w, http.StatusBadRequest, "habit required")
		return
	}

	h := &store.HabitLog{
		UserID:     userID,
		RecordedAt: recordedAtOrNow(req.RecordedAt),
		Habit:      req.Habit,
		Completed:  req.Completed,
	}
	s.ingested(w, userID, h.RecordedAt, func() (string, error) { err := s.db.AddHabitLog(h); return h.ID, err })
}

func (s *Server) handleAddSymptom(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		RecordedAt int64   `json:"recorded_at"`
		Name       string  `json:"name"`
		Severity   float64 `json:"severity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}

	sym := &store.SymptomLog{
		UserID:     userID,
		RecordedAt: recordedAtOrNow(req.RecordedAt),
		Name:       req.Name,
		Severity:   req.Severity,
	}
	s.ingested(w, userID, sym.RecordedAt, func() (string, error) { err := s.db.AddSymptomLog(sym); return sym.ID, err })
}

func (s *Server) handleAddLab(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		RecordedAt   int64  `json:"recorded_at"`
		Panel        string `json:"panel"`
		FlaggedCount int    `json:"flagged_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	l := &store.LabReport{
		UserID:       userID,
		RecordedAt:   recordedAtOrNow(req.RecordedAt),
		Panel:        req.Panel,
		FlaggedCount: req.FlaggedCount,
	}
	s.ingested(w, userID, l.RecordedAt, func() (string, error) { err := s.db.AddLabReport(l); return l.ID, err })
}

func (s *Server) handleAddJournal(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		RecordedAt int64  `json:"recorded_at"`
		Body       string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "body required")
		return
	}

	j := &store.JournalEntry{
		UserID:     userID,
		RecordedAt: recordedAtOrNow(req.RecordedAt),
		Body:       req.Body,
	}
	s.ingested(w, userID, j.RecordedAt, func() (string, error) { err := s.db.AddJournalEntry(j); return j.ID, err })
}

func (s *Server) handleAddNutrition(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		RecordedAt int64   `json:"recorded_at"`
		Calories   float64 `json:"calories"`
		Protein    float64 `json:"protein"`
		Carbs      float64 `json:"carbs"`
		Fat        float64 `json:"fat"`
		Water      float64 `json:"water"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	n := &store.NutritionLog{
		UserID:     userID,
		RecordedAt: recordedAtOrNow(req.RecordedAt),
		Calories:   req.Calories,
		Protein:    req.Protein,
		Carbs:      req.Carbs,
		Fat:        req.Fat,
		Water:      req.Water,
	}
	s.ingested(w, userID, n.RecordedAt, func() (string, error) { err := s.db.AddNutritionLog(n); return n.ID, err })
}

func (s *Server) handleAddOverride(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		StartDayKey string  `json:"start_day_key"`
		EndDayKey   string  `json:"end_day_key"`
		Scope       string  `json:"scope"`
		Kind        string  `json:"kind"`
		Strength    float64 `json:"strength"`
		Note        string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if _, err := engine.ParseDayKey(req.StartDayKey); err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_day_key")
		return
	}
	if _, err := engine.ParseDayKey(req.EndDayKey); err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_day_key")
		return
	}
	switch req.Scope {
	case store.ScopeAll, store.ScopeSleep, store.ScopeStress, store.ScopeTraining, store.ScopeNutrition:
	default:
		writeError(w, http.StatusBadRequest, "invalid scope")
		return
	}
	if req.Strength < 0 || req.Strength > 1 {
		writeError(w, http.StatusBadRequest, "strength must be in [0,1]")
		return
	}

	o := &store.MemoryOverride{
		UserID:      userID,
		StartDayKey: req.StartDayKey,
		EndDayKey:   req.EndDayKey,
		Scope:       req.Scope,
		Kind:        req.Kind,
		Strength:    req.Strength,
		Note:        req.Note,
	}
	if err := s.db.AddOverride(o); err != nil {
		s.log.Error("add override failed", zap.String("user", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "write failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": o.ID, "status": "ok"})
}

func (s *Server) handleDailyState(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	dayKey := chi.URLParam(r, "dayKey")
	force := r.URL.Query().Get("force") == "1"

	state, err := s.engine.EnsureDaily(r.Context(), userID, dayKey, force)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidDayKey) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("daily state failed", zap.String("user", userID), zap.String("day", dayKey), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "compile failed")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	dayKey := chi.URLParam(r, "dayKey")

	decision, err := s.engine.Gate(r.Context(), userID, dayKey)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidDayKey) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// The gate fails toward silence; report the silent decision.
		s.log.Warn("gate evaluation degraded", zap.String("user", userID), zap.String("day", dayKey), zap.Error(err))
	}

	payload, err := engine.BuildPayload(decision)
	if err != nil {
		s.log.Error("payload build failed", zap.String("user", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "payload build failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decision": decision,
		"payload":  payload,
	})
}

func (s *Server) handleOutlook(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	dayKey := chi.URLParam(r, "dayKey")

	entries, err := s.engine.Outlook(r.Context(), userID, dayKey)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidDayKey) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("outlook failed", zap.String("user", userID), zap.String("day", dayKey), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "outlook failed")
		return
	}
	if entries == nil {
		entries = []engine.OutlookEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"day_key": dayKey, "outlook": entries})
}
