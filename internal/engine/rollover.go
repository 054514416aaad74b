package engine

import (
	"context"
	"time"

	"lifequest/internal/storage"
)

// RolloverResult summarizes one day-boundary pass.
type RolloverResult struct {
	Expired       int
	RolledOver    int
	Failed        int
	Instantiated  int
	StreaksBroken int
}

// Rollover processes the day boundary as of now: expires open scheduled
// quests from earlier days (failing or re-creating them per template
// policy), records habit misses against forgiveness, and instantiates
// today's quests from active templates. Safe to run repeatedly and late:
// terminal statuses and the per-(template, day) uniqueness make every
// step a no-op the second time, and missed days are caught up one by one.
func (s *Service) Rollover(ctx context.Context) (*RolloverResult, error) {
	today := s.now().UTC().Format(DayFormat)
	res := &RolloverResult{}

	err := s.inTx(ctx, func(r repos) error {
		expired, err := r.quests.ListOpenDueBefore(ctx, today)
		if err != nil {
			return err
		}

		for i := range expired {
			q := &expired[i]
			res.Expired++

			policy := RolloverFail
			var tpl *storage.QuestTemplate
			if q.TemplateID != nil {
				tpl, err = r.templates.Get(ctx, *q.TemplateID)
				if err != nil {
					return err
				}
				if tpl != nil {
					policy = RolloverPolicy(tpl.RolloverPolicy)
				}
			}

			to := StatusFailed
			if policy == RolloverRecreate {
				to = StatusRolledOver
			}
			if err := s.transition(ctx, r, q, to, "rollover", nil); err != nil {
				return err
			}
			if to == StatusRolledOver {
				res.RolledOver++
			} else {
				res.Failed++
			}
		}

		// Habit misses are reconciled from streak state, not quest rows:
		// a day on which rollover never ran leaves no expired row behind,
		// but it is a miss all the same.
		broken, err := s.catchUpStreaks(ctx, r, today)
		if err != nil {
			return err
		}
		res.StreaksBroken = broken

		n, err := s.instantiateForDay(ctx, r, today)
		if err != nil {
			return err
		}
		res.Instantiated = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// catchUpStreaks walks, per habit template, every scheduled day strictly
// after the last completion and records each as a miss. The walk starts at
// whichever of LastCompletedDay and SettledThrough is later, so repeated
// and late runs never count a day twice, and completions inside a gap can
// never be mistaken for misses. Returns how many streaks broke.
func (s *Service) catchUpStreaks(ctx context.Context, r repos, today string) (int, error) {
	end, err := time.Parse(DayFormat, today)
	if err != nil {
		return 0, err
	}
	yesterday := end.AddDate(0, 0, -1).Format(DayFormat)

	templates, err := r.templates.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	broken := 0
	for _, tpl := range templates {
		if QuestType(tpl.QuestType) != QuestHabit {
			continue
		}
		st, err := r.streaks.Get(ctx, tpl.ID)
		if err != nil {
			return 0, err
		}
		if st == nil || st.LastCompletedDay == "" || st.SettledThrough >= yesterday {
			continue
		}

		// Day keys sort lexicographically.
		from := st.LastCompletedDay
		if st.SettledThrough > from {
			from = st.SettledThrough
		}
		start, err := time.Parse(DayFormat, from)
		if err != nil {
			return 0, err
		}

		before := st.Consecutive
		for d := start.AddDate(0, 0, 1); d.Before(end); d = d.AddDate(0, 0, 1) {
			if !recursOn(Recurrence(tpl.Recurrence), d) {
				continue
			}
			s.reg.RecordMiss(st, d.Format(DayFormat))
		}
		st.SettledThrough = yesterday
		if err := r.streaks.Upsert(ctx, *st); err != nil {
			return 0, err
		}
		if before > 0 && st.Consecutive == 0 {
			broken++
		}
	}
	return broken, nil
}

// instantiateForDay creates today's quest rows from active recurring
// templates. The (template, day) unique index makes this idempotent.
func (s *Service) instantiateForDay(ctx context.Context, r repos, day string) (int, error) {
	templates, err := r.templates.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	d, err := time.Parse(DayFormat, day)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, tpl := range templates {
		if !recursOn(Recurrence(tpl.Recurrence), d) {
			continue
		}
		exists, err := r.quests.ExistsForTemplateDay(ctx, tpl.ID, day)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}

		// Re-price from history at every instantiation.
		samples, meanMinutes, err := r.quests.TemplateActuals(ctx, tpl.ID)
		if err != nil {
			return 0, err
		}
		xp, err := BaseXP(s.cfg, Difficulty(tpl.Difficulty), tpl.EstimatedMinutes, samples, meanMinutes)
		if err != nil {
			return 0, err
		}

		tplID := tpl.ID
		due := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
		dayCopy := day
		if _, err := r.quests.Insert(ctx, storage.QuestInsert{
			TemplateID:       &tplID,
			Title:            tpl.Title,
			QuestType:        tpl.QuestType,
			Domain:           tpl.Domain,
			Skill:            tpl.Skill,
			Difficulty:       tpl.Difficulty,
			XPReward:         xp,
			EstimatedMinutes: tpl.EstimatedMinutes,
			Status:           string(StatusPending),
			DueDate:          &due,
			ScheduleDay:      &dayCopy,
		}); err != nil {
			return 0, err
		}
		created++
	}
	return created, nil
}

// recursOn reports whether a recurrence fires on the given day: daily
// every day, weekly on Mondays, monthly on the 1st.
func recursOn(rec Recurrence, day time.Time) bool {
	switch rec {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return day.Weekday() == time.Monday
	case RecurrenceMonthly:
		return day.Day() == 1
	default:
		return false
	}
}
