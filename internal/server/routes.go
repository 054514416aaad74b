package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"lifequest/internal/engine"
)

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.svc.Skills(r.Context())
	if err != nil {
		s.log.Error("skills read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, skills)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	ranked, err := s.svc.Today(r.Context())
	if err != nil {
		s.log.Error("today read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}

	type entry struct {
		ID       int64   `json:"id"`
		Title    string  `json:"title"`
		Type     string  `json:"type"`
		Domain   string  `json:"domain"`
		Skill    string  `json:"skill"`
		XPReward int     `json:"xp_reward"`
		Status   string  `json:"status"`
		Score    float64 `json:"score"`
	}
	out := make([]entry, 0, len(ranked))
	for _, rq := range ranked {
		out = append(out, entry{
			ID:       rq.Quest.ID,
			Title:    rq.Quest.Title,
			Type:     rq.Quest.QuestType,
			Domain:   rq.Quest.Domain,
			Skill:    rq.Quest.Skill,
			XPReward: rq.Quest.XPReward,
			Status:   rq.Quest.Status,
			Score:    rq.Score,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-7 * 24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC3339"})
			return
		}
		since = t
	}
	awards, err := s.svc.Audit(r.Context(), since)
	if err != nil {
		s.log.Error("audit read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, awards)
}

// handleComplete funnels collaborator completion signals through the one
// engine entry point. The caller's own work already succeeded; a failure
// here is logged and reported, never fatal to them.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	questID, err := strconv.ParseInt(chi.URLParam(r, "questID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quest id must be an integer"})
		return
	}

	var req struct {
		Source         string  `json:"source"`
		IdempotencyKey string  `json:"idempotency_key"`
		PartialCredit  float64 `json:"partial_credit"`
	}
	if r.Body != nil {
		_ = decodeJSON(r, &req)
	}

	res, ok := engine.Guard(s.log, "complete_quest", func() (*engine.CompleteResult, error) {
		return s.svc.CompleteQuest(r.Context(), engine.CompleteInput{
			QuestID:        questID,
			Source:         req.Source,
			IdempotencyKey: req.IdempotencyKey,
			PartialCredit:  req.PartialCredit,
		})
	})
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"applied": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied":     true,
		"duplicate":   res.Duplicate,
		"xp_applied":  res.XPApplied,
		"clip_reason": res.ClipReason,
		"level_up":    res.LevelUp,
		"streak":      res.Streak,
	})
}

// handleAward accepts raw XP awards from non-quest subsystems, e.g. a
// fear_faced direct award.
func (s *Server) handleAward(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Skill          string `json:"skill"`
		Amount         int    `json:"amount"`
		Source         string `json:"source"`
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Skill == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "skill required"})
		return
	}

	res, ok := engine.Guard(s.log, "award_xp", func() (*engine.AwardResult, error) {
		return s.svc.AwardXP(r.Context(), engine.AwardInput{
			Skill:          req.Skill,
			Amount:         req.Amount,
			Source:         req.Source,
			IdempotencyKey: req.IdempotencyKey,
		})
	})
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"applied": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied":     true,
		"duplicate":   res.Duplicate,
		"xp_applied":  res.Applied,
		"clip_reason": res.ClipReason,
		"new_total":   res.NewTotal,
		"new_level":   res.NewLevel,
	})
}
