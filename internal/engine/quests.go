package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lifequest/internal/storage"
)

func normalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", errors.New("title is required")
	}
	return t, nil
}

type CreateTemplateInput struct {
	Title            string
	QuestType        QuestType
	Recurrence       Recurrence
	Skill            string
	Difficulty       Difficulty
	EstimatedMinutes int
	RolloverPolicy   RolloverPolicy
}

// CreateTemplate registers a recurring quest definition. Its base XP is
// priced from the difficulty band; template changes are prospective only,
// so retiring and re-creating is the way to "edit" one.
func (s *Service) CreateTemplate(ctx context.Context, in CreateTemplateInput) (int64, error) {
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return 0, err
	}
	if !in.QuestType.IsValid() || in.QuestType == QuestProject {
		return 0, fmt.Errorf("invalid template quest type: %q", in.QuestType)
	}
	if !in.Difficulty.IsValid() {
		return 0, fmt.Errorf("invalid difficulty: %d", in.Difficulty)
	}
	if !in.Recurrence.IsValid() {
		return 0, fmt.Errorf("invalid recurrence: %q", in.Recurrence)
	}
	domain, ok := SkillDomain(in.Skill)
	if !ok {
		return 0, fmt.Errorf("unknown skill: %q", in.Skill)
	}
	policy := in.RolloverPolicy
	if policy == "" {
		policy = RolloverFail
	}

	baseXP, err := BandMidpoint(in.Difficulty)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.inTx(ctx, func(r repos) error {
		id, err = r.templates.Insert(ctx, storage.TemplateInsert{
			Title:            title,
			QuestType:        string(in.QuestType),
			Recurrence:       string(in.Recurrence),
			Domain:           string(domain),
			Skill:            in.Skill,
			Difficulty:       int(in.Difficulty),
			BaseXP:           baseXP,
			EstimatedMinutes: in.EstimatedMinutes,
			RolloverPolicy:   string(policy),
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

type CreateQuestInput struct {
	Title            string
	QuestType        QuestType
	Skill            string
	Difficulty       Difficulty
	EstimatedMinutes int
	DueDate          *time.Time
	// TemplateID links ad-hoc repeats to their template so diminishing
	// returns and historical pricing can see them.
	TemplateID *int64
	// ParentID + StepNumber attach the quest as a project step.
	ParentID   *int64
	StepNumber *int
}

// CreateQuest creates a standalone quest: a daily from a captured intent, a
// manually entered challenge, a project, or a project step. Steps carry no
// XP of their own; the parent project awards its full XP once all steps
// complete.
func (s *Service) CreateQuest(ctx context.Context, in CreateQuestInput) (int64, error) {
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return 0, err
	}
	if !in.QuestType.IsValid() {
		return 0, fmt.Errorf("invalid quest type: %q", in.QuestType)
	}
	if !in.Difficulty.IsValid() {
		return 0, fmt.Errorf("invalid difficulty: %d", in.Difficulty)
	}
	domain, ok := SkillDomain(in.Skill)
	if !ok {
		return 0, fmt.Errorf("unknown skill: %q", in.Skill)
	}
	if (in.ParentID == nil) != (in.StepNumber == nil) {
		return 0, errors.New("project steps need both a parent and a step number")
	}

	var id int64
	err = s.inTx(ctx, func(r repos) error {
		xpReward := 0
		if in.ParentID != nil {
			parent, err := r.quests.Get(ctx, *in.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return NotFoundError{Kind: "quest", ID: *in.ParentID}
			}
			if QuestType(parent.QuestType) != QuestProject {
				return ValidationError{Msg: fmt.Sprintf("quest %d is not a project", parent.ID)}
			}
			if Status(parent.Status) == StatusCompleted || Status(parent.Status) == StatusFailed {
				return InvalidTransitionError{QuestID: parent.ID, From: Status(parent.Status), To: StatusInProgress}
			}
		} else {
			// Price the quest from its difficulty band and, when the
			// template has history, the mean actual time to complete.
			samples, meanMinutes := 0, 0.0
			if in.TemplateID != nil {
				var err error
				samples, meanMinutes, err = r.quests.TemplateActuals(ctx, *in.TemplateID)
				if err != nil {
					return err
				}
			}
			var err error
			xpReward, err = BaseXP(s.cfg, in.Difficulty, in.EstimatedMinutes, samples, meanMinutes)
			if err != nil {
				return err
			}
		}

		// Scheduled instances get their day from rollover instantiation;
		// ad-hoc repeats of a template leave it NULL so the one-per-day
		// uniqueness only binds the scheduler. Those repeats still belong
		// to the day they were logged, so they default to an end-of-day
		// due date and expire at rollover like everything else.
		var scheduleDay *string
		dueDate := in.DueDate
		if in.QuestType == QuestDaily || in.QuestType == QuestHabit || in.QuestType == QuestRest {
			if in.TemplateID == nil {
				day := s.dayOf(in.DueDate)
				scheduleDay = &day
			} else if dueDate == nil {
				d := s.now().UTC()
				eod := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
				dueDate = &eod
			}
		}

		var err error
		id, err = r.quests.Insert(ctx, storage.QuestInsert{
			TemplateID:       in.TemplateID,
			ParentID:         in.ParentID,
			StepNumber:       in.StepNumber,
			Title:            title,
			QuestType:        string(in.QuestType),
			Domain:           string(domain),
			Skill:            in.Skill,
			Difficulty:       int(in.Difficulty),
			XPReward:         xpReward,
			EstimatedMinutes: in.EstimatedMinutes,
			Status:           string(StatusPending),
			DueDate:          dueDate,
			ScheduleDay:      scheduleDay,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Service) dayOf(t *time.Time) string {
	if t != nil {
		return t.UTC().Format(DayFormat)
	}
	return s.now().UTC().Format(DayFormat)
}

// StartQuest moves a pending quest to in_progress.
func (s *Service) StartQuest(ctx context.Context, questID int64, source string) error {
	return s.inTx(ctx, func(r repos) error {
		q, err := r.quests.Get(ctx, questID)
		if err != nil {
			return err
		}
		if q == nil {
			return NotFoundError{Kind: "quest", ID: questID}
		}
		return s.transition(ctx, r, q, StatusInProgress, source, nil)
	})
}

// FailQuest marks a quest failed (explicit abandonment).
func (s *Service) FailQuest(ctx context.Context, questID int64, source string) error {
	return s.inTx(ctx, func(r repos) error {
		q, err := r.quests.Get(ctx, questID)
		if err != nil {
			return err
		}
		if q == nil {
			return NotFoundError{Kind: "quest", ID: questID}
		}
		return s.transition(ctx, r, q, StatusFailed, source, nil)
	})
}

// transition validates against the allowed-transition table, updates the
// cached status and appends the audit row.
func (s *Service) transition(ctx context.Context, r repos, q *storage.Quest, to Status, source string, completedAt *time.Time) error {
	from := Status(q.Status)
	if !CanTransition(from, to) {
		return InvalidTransitionError{QuestID: q.ID, From: from, To: to}
	}
	if err := r.quests.SetStatus(ctx, q.ID, string(to), completedAt); err != nil {
		return err
	}
	if err := r.quests.InsertTransition(ctx, storage.QuestTransition{
		QuestID:    q.ID,
		FromStatus: string(from),
		ToStatus:   string(to),
		Source:     source,
		At:         s.now().UTC(),
	}); err != nil {
		return err
	}
	q.Status = string(to)
	return nil
}

type CompleteInput struct {
	QuestID int64
	// Source is the collaborator channel: "voice", "auto", "manual".
	Source         string
	IdempotencyKey string
	// PartialCredit below 1.0 marks a good-enough completion; it is
	// capped at the configured partial ceiling. Zero means full credit.
	PartialCredit float64
}

type CompleteResult struct {
	QuestID          int64
	XPRequested      int
	XPApplied        int
	ClipReason       string
	Skill            string
	LevelBefore      int
	LevelAfter       int
	LevelUp          bool
	Streak           int
	StreakMilestone  bool
	ProjectCompleted bool
	// Duplicate marks a replayed completion; nothing changed.
	Duplicate bool
}

// CompleteQuest is the single completion entry point for every channel
// (voice, auto-detect, manual). Replays under the same idempotency key are
// no-op successes; completing an already-completed quest with a fresh key
// is an InvalidTransitionError, and the ledger is untouched either way.
func (s *Service) CompleteQuest(ctx context.Context, in CompleteInput) (*CompleteResult, error) {
	var res *CompleteResult
	err := s.inTx(ctx, func(r repos) error {
		var err error
		res, err = s.completeLocked(ctx, r, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.LevelUp {
		s.log.Info("level up", "skill", res.Skill, "level", res.LevelAfter, "quest", res.QuestID)
	}
	if res.StreakMilestone {
		s.log.Info("streak milestone", "quest", res.QuestID, "streak", res.Streak)
	}
	return res, nil
}

func (s *Service) completeLocked(ctx context.Context, r repos, in CompleteInput) (*CompleteResult, error) {
	q, err := r.quests.Get(ctx, in.QuestID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, NotFoundError{Kind: "quest", ID: in.QuestID}
	}

	// One key per project regardless of path, so the auto-complete on the
	// final step, a direct completion and any replay all resolve to the
	// same award.
	if QuestType(q.QuestType) == QuestProject && q.ParentID == nil && in.IdempotencyKey == "" {
		in.IdempotencyKey = fmt.Sprintf("project:%d", q.ID)
	}

	// Idempotent replay: the award row under this key is the completion.
	if in.IdempotencyKey != "" {
		prior, err := r.awards.GetByKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return &CompleteResult{
				QuestID:     q.ID,
				XPRequested: prior.Requested,
				XPApplied:   prior.Applied,
				ClipReason:  prior.ClipReason,
				Skill:       prior.Skill,
				Duplicate:   true,
			}, nil
		}
	}

	if !CanTransition(Status(q.Status), StatusCompleted) {
		return nil, InvalidTransitionError{QuestID: q.ID, From: Status(q.Status), To: StatusCompleted}
	}

	now := s.now().UTC()
	day := now.Format(DayFormat)

	// Project steps: no XP of their own; completion may finish the parent.
	if q.ParentID != nil {
		if err := s.transition(ctx, r, q, StatusCompleted, in.Source, &now); err != nil {
			return nil, err
		}
		return s.settleProjectStep(ctx, r, q, in, now)
	}

	if QuestType(q.QuestType) == QuestProject {
		done, total, err := s.projectProgress(ctx, r, q.ID)
		if err != nil {
			return nil, err
		}
		if done < total {
			return nil, ValidationError{Msg: fmt.Sprintf("project %d has %d/%d steps complete", q.ID, done, total)}
		}
	}

	streakMult := 1.0
	streak := 0
	milestone := false
	if QuestType(q.QuestType) == QuestHabit && q.TemplateID != nil {
		st, err := r.streaks.Get(ctx, *q.TemplateID)
		if err != nil {
			return nil, err
		}
		if st == nil {
			st = &storage.StreakState{TemplateID: *q.TemplateID}
		}
		milestone = s.reg.RecordCompletion(st, day)
		streak = st.Consecutive
		// Bonus reflects the run up to (not including) today, so the
		// first completion of a streak earns no bonus.
		streakMult = s.reg.StreakMultiplier(st.Consecutive - 1)
		if err := r.streaks.Upsert(ctx, *st); err != nil {
			return nil, err
		}
	}

	partial := NormalizePartialCredit(s.cfg, orFull(in.PartialCredit))
	requested := CompletionXP(q.XPReward, streakMult, partial)

	// Same-day repeats of one template earn geometrically less.
	repeatReason := ClipNone
	if q.TemplateID != nil {
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		repeats, err := r.quests.CountCompletedForTemplateSince(ctx, *q.TemplateID, startOfDay)
		if err != nil {
			return nil, err
		}
		if factor := s.reg.RepeatFactor(repeats); factor < 1 {
			requested = CompletionXP(requested, factor, 1)
			repeatReason = ClipDiminishingReturn
		}
	}

	if err := s.transition(ctx, r, q, StatusCompleted, in.Source, &now); err != nil {
		return nil, err
	}

	award, err := s.applyAward(ctx, r, AwardInput{
		Skill:          q.Skill,
		Amount:         requested,
		Source:         completionSource(in.Source, q.ID),
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	reason := award.ClipReason
	if reason == ClipNone {
		reason = repeatReason
	}

	return &CompleteResult{
		QuestID:         q.ID,
		XPRequested:     award.Requested,
		XPApplied:       award.Applied,
		ClipReason:      reason,
		Skill:           q.Skill,
		LevelBefore:     award.LevelBefore,
		LevelAfter:      award.NewLevel,
		LevelUp:         award.LeveledUp,
		Streak:          streak,
		StreakMilestone: milestone,
	}, nil
}

// settleProjectStep checks whether the parent project just reached 100%
// and, if so, completes it and fires its single full award.
func (s *Service) settleProjectStep(ctx context.Context, r repos, step *storage.Quest, in CompleteInput, now time.Time) (*CompleteResult, error) {
	parent, err := r.quests.Get(ctx, *step.ParentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, NotFoundError{Kind: "quest", ID: *step.ParentID}
	}

	res := &CompleteResult{QuestID: step.ID, Skill: step.Skill}

	// First step completed moves the project to in_progress.
	if Status(parent.Status) == StatusPending {
		if err := s.transition(ctx, r, parent, StatusInProgress, in.Source, nil); err != nil {
			return nil, err
		}
	}

	done, total, err := s.projectProgress(ctx, r, parent.ID)
	if err != nil {
		return nil, err
	}
	if total == 0 || done < total {
		return res, nil
	}

	if err := s.transition(ctx, r, parent, StatusCompleted, in.Source, &now); err != nil {
		return nil, err
	}
	award, err := s.applyAward(ctx, r, AwardInput{
		Skill:  parent.Skill,
		Amount: parent.XPReward,
		Source: completionSource(in.Source, parent.ID),
		// The parent's own id keys the award so concurrent final-step
		// races cannot double-award the project.
		IdempotencyKey: fmt.Sprintf("project:%d", parent.ID),
	})
	if err != nil {
		return nil, err
	}

	res.ProjectCompleted = true
	res.Skill = parent.Skill
	res.XPRequested = award.Requested
	res.XPApplied = award.Applied
	res.ClipReason = award.ClipReason
	res.LevelBefore = award.LevelBefore
	res.LevelAfter = award.NewLevel
	res.LevelUp = award.LeveledUp
	return res, nil
}

// projectProgress counts completed vs total steps. The percentage is
// always derived, never stored.
func (s *Service) projectProgress(ctx context.Context, r repos, projectID int64) (done, total int, err error) {
	steps, err := r.quests.ListChildren(ctx, projectID)
	if err != nil {
		return 0, 0, err
	}
	for _, st := range steps {
		total++
		if Status(st.Status) == StatusCompleted {
			done++
		}
	}
	return done, total, nil
}

// ProjectCompletion returns a project's derived completion ratio [0,1].
func (s *Service) ProjectCompletion(ctx context.Context, projectID int64) (float64, error) {
	var done, total int
	err := s.inTx(ctx, func(r repos) error {
		var err error
		done, total, err = s.projectProgress(ctx, r, projectID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return float64(done) / float64(total), nil
}

// RestDay awards the fixed rest-day credit for explicitly not pursuing
// productivity quests today. Idempotent per day; the credit passes through
// the same daily ceiling as everything else.
func (s *Service) RestDay(ctx context.Context, source string) (*CompleteResult, error) {
	day := s.now().UTC().Format(DayFormat)
	var res *CompleteResult
	err := s.inTx(ctx, func(r repos) error {
		key := "rest:" + day
		prior, err := r.awards.GetByKey(ctx, key)
		if err != nil {
			return err
		}
		if prior != nil {
			res = &CompleteResult{
				XPRequested: prior.Requested,
				XPApplied:   prior.Applied,
				ClipReason:  prior.ClipReason,
				Skill:       prior.Skill,
				Duplicate:   true,
			}
			return nil
		}

		id, err := r.quests.Insert(ctx, storage.QuestInsert{
			Title:       "Rest day",
			QuestType:   string(QuestRest),
			Domain:      string(DomainBody),
			Skill:       s.cfg.RestDaySkill,
			Difficulty:  int(DifficultyTrivial),
			XPReward:    s.cfg.RestDayXP,
			Status:      string(StatusPending),
			ScheduleDay: &day,
		})
		if err != nil {
			return err
		}
		q, err := r.quests.Get(ctx, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := s.transition(ctx, r, q, StatusCompleted, source, &now); err != nil {
			return err
		}
		award, err := s.applyAward(ctx, r, AwardInput{
			Skill:          s.cfg.RestDaySkill,
			Amount:         s.cfg.RestDayXP,
			Source:         "rest_day",
			IdempotencyKey: key,
		})
		if err != nil {
			return err
		}
		res = &CompleteResult{
			QuestID:     id,
			XPRequested: award.Requested,
			XPApplied:   award.Applied,
			ClipReason:  award.ClipReason,
			Skill:       award.Skill,
			LevelBefore: award.LevelBefore,
			LevelAfter:  award.NewLevel,
			LevelUp:     award.LeveledUp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func orFull(credit float64) float64 {
	if credit == 0 {
		return 1
	}
	return credit
}

func completionSource(source string, questID int64) string {
	if source == "" {
		source = "manual"
	}
	return fmt.Sprintf("%s:quest:%d", source, questID)
}
