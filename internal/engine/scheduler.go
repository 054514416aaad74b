package engine

import (
	"context"
	"sort"
	"time"

	"lifequest/internal/storage"
)

// RankedQuest is an open quest with its priority score and the component
// terms that produced it.
type RankedQuest struct {
	Quest           storage.Quest
	Score           float64
	TimeSensitivity float64
	NormalizedXP    float64
	StreakRisk      float64
	DomainBalance   float64
}

// Today returns the day's open quests ordered for display. Pure read: no
// side effects, any number of calls, deterministic order (score desc, then
// earliest due date, then lowest id).
func (s *Service) Today(ctx context.Context) ([]RankedQuest, error) {
	var (
		open    []storage.Quest
		streaks = map[int64]storage.StreakState{}
	)
	err := s.inTx(ctx, func(r repos) error {
		var err error
		open, err = r.quests.ListOpen(ctx)
		if err != nil {
			return err
		}
		for _, q := range open {
			if QuestType(q.QuestType) != QuestHabit || q.TemplateID == nil {
				continue
			}
			st, err := r.streaks.Get(ctx, *q.TemplateID)
			if err != nil {
				return err
			}
			if st != nil {
				streaks[*q.TemplateID] = *st
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Rank(s.cfg, open, streaks, s.now().UTC()), nil
}

// Rank scores and orders open quests. Exported separately from Today so it
// is testable without a store.
func Rank(cfg Config, open []storage.Quest, streaks map[int64]storage.StreakState, now time.Time) []RankedQuest {
	maxXP := 0
	perDomain := map[Domain]int{}
	for _, q := range open {
		if q.XPReward > maxXP {
			maxXP = q.XPReward
		}
		perDomain[Domain(q.Domain)]++
	}

	w := cfg.Weights
	out := make([]RankedQuest, 0, len(open))
	for _, q := range open {
		r := RankedQuest{Quest: q}
		r.TimeSensitivity = timeSensitivity(q.DueDate, now)
		if maxXP > 0 {
			r.NormalizedXP = float64(q.XPReward) / float64(maxXP)
		}
		r.StreakRisk = streakRisk(cfg, q, streaks, now)
		r.DomainBalance = domainUnderrepresentation(perDomain, Domain(q.Domain), len(open))
		r.Score = w.TimeSensitivity*r.TimeSensitivity +
			w.XPValue*r.NormalizedXP +
			w.StreakRisk*r.StreakRisk +
			w.DomainBalance*r.DomainBalance
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		di, dj := out[i].Quest.DueDate, out[j].Quest.DueDate
		switch {
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		}
		return out[i].Quest.ID < out[j].Quest.ID
	})
	return out
}

// timeSensitivity scales urgency by due-date proximity. Overdue or due
// today is maximal; undated quests keep a small floor so they surface
// eventually.
func timeSensitivity(due *time.Time, now time.Time) float64 {
	if due == nil {
		return 0.1
	}
	until := due.Sub(now)
	switch {
	case until <= 24*time.Hour:
		return 1.0
	case until <= 48*time.Hour:
		return 0.7
	case until <= 3*24*time.Hour:
		return 0.5
	case until <= 7*24*time.Hour:
		return 0.3
	default:
		return 0.1
	}
}

// streakRisk is nonzero for habit quests with a live streak not yet
// completed today; longer streaks have more to lose, saturating at the
// streak cap.
func streakRisk(cfg Config, q storage.Quest, streaks map[int64]storage.StreakState, now time.Time) float64 {
	if QuestType(q.QuestType) != QuestHabit || q.TemplateID == nil {
		return 0
	}
	st, ok := streaks[*q.TemplateID]
	if !ok || st.Consecutive == 0 {
		return 0
	}
	if st.LastCompletedDay == now.Format(DayFormat) {
		return 0
	}
	risk := float64(st.Consecutive) / float64(cfg.StreakCapDays)
	if risk > 1 {
		risk = 1
	}
	return risk
}

// domainUnderrepresentation measures how far a domain's share of open
// quests falls below an even third, scaled so a fully absent domain
// scores 1.
func domainUnderrepresentation(perDomain map[Domain]int, d Domain, total int) float64 {
	if total == 0 {
		return 0
	}
	share := float64(perDomain[d]) / float64(total)
	const target = 1.0 / 3.0
	if share >= target {
		return 0
	}
	return (target - share) / target
}
