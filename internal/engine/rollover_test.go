package engine

import (
	"context"
	"testing"
)

// openForTemplate finds the open instantiated quest for a template.
func openForTemplate(t *testing.T, svc *Service, tplID int64) int64 {
	t.Helper()
	quests, err := svc.ListQuests(context.Background(), false)
	if err != nil {
		t.Fatalf("ListQuests: %v", err)
	}
	for _, q := range quests {
		if q.TemplateID != nil && *q.TemplateID == tplID {
			return q.ID
		}
	}
	t.Fatalf("no open quest for template %d", tplID)
	return 0
}

func TestRolloverInstantiatesOncePerDay(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, CreateTemplateInput{
		Title:      "Journal",
		QuestType:  QuestHabit,
		Recurrence: RecurrenceDaily,
		Skill:      "Reflection",
		Difficulty: DifficultyTrivial,
	}); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	setDay(t, svc, "2026-03-01")

	first, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	if first.Instantiated != 1 {
		t.Fatalf("first run instantiated=%d, want 1", first.Instantiated)
	}

	// Re-running the same boundary changes nothing.
	second, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("second Rollover: %v", err)
	}
	if second.Instantiated != 0 || second.Expired != 0 {
		t.Errorf("second run: %+v, want all zero", second)
	}
}

func TestRolloverForgivesOneMiss(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	tplID, err := svc.CreateTemplate(ctx, CreateTemplateInput{
		Title:      "Journal",
		QuestType:  QuestHabit,
		Recurrence: RecurrenceDaily,
		Skill:      "Reflection",
		Difficulty: DifficultyTrivial,
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	complete := func(day string) *CompleteResult {
		setDay(t, svc, day)
		if _, err := svc.Rollover(ctx); err != nil {
			t.Fatalf("Rollover %s: %v", day, err)
		}
		return mustComplete(t, svc, CompleteInput{QuestID: openForTemplate(t, svc, tplID)})
	}

	complete("2026-03-01")
	complete("2026-03-02")

	// Day 3 passes untouched.
	setDay(t, svc, "2026-03-03")
	if _, err := svc.Rollover(ctx); err != nil {
		t.Fatalf("Rollover: %v", err)
	}

	// Day 4: the miss is absorbed by forgiveness, the streak survives.
	setDay(t, svc, "2026-03-04")
	res, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	if res.Expired != 1 || res.Failed != 1 || res.StreaksBroken != 0 {
		t.Fatalf("day-4 rollover: %+v", res)
	}
	done := mustComplete(t, svc, CompleteInput{QuestID: openForTemplate(t, svc, tplID)})
	if done.Streak != 3 {
		t.Errorf("streak after forgiven miss=%d, want 3", done.Streak)
	}

	// The run keeps building through the end of the week.
	for _, day := range []string{"2026-03-05", "2026-03-06", "2026-03-07"} {
		done = complete(day)
	}
	if done.Streak != 6 {
		t.Errorf("streak at day 7=%d, want 6", done.Streak)
	}
}

func TestRolloverBreaksStreakPastForgiveness(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	tplID, err := svc.CreateTemplate(ctx, CreateTemplateInput{
		Title:      "Journal",
		QuestType:  QuestHabit,
		Recurrence: RecurrenceDaily,
		Skill:      "Reflection",
		Difficulty: DifficultyTrivial,
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	setDay(t, svc, "2026-03-01")
	if _, err := svc.Rollover(ctx); err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	mustComplete(t, svc, CompleteInput{QuestID: openForTemplate(t, svc, tplID)})

	setDay(t, svc, "2026-03-02")
	if _, err := svc.Rollover(ctx); err != nil {
		t.Fatalf("Rollover: %v", err)
	}

	// Two untouched days: a late catch-up run records each miss. The first
	// consumes the token, the second breaks the streak.
	setDay(t, svc, "2026-03-04")
	res, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("catch-up Rollover: %v", err)
	}
	if res.StreaksBroken != 1 {
		t.Errorf("StreaksBroken=%d, want 1", res.StreaksBroken)
	}
	done := mustComplete(t, svc, CompleteInput{QuestID: openForTemplate(t, svc, tplID)})
	if done.Streak != 1 {
		t.Errorf("streak after break=%d, want fresh 1", done.Streak)
	}
}

func TestRolloverPolicyRecreate(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, CreateTemplateInput{
		Title:          "Clear inbox",
		QuestType:      QuestDaily,
		Recurrence:     RecurrenceDaily,
		Skill:          "Career",
		Difficulty:     DifficultyEasy,
		RolloverPolicy: RolloverRecreate,
	}); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	setDay(t, svc, "2026-03-01")
	if _, err := svc.Rollover(ctx); err != nil {
		t.Fatalf("Rollover: %v", err)
	}

	setDay(t, svc, "2026-03-02")
	res, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	if res.Expired != 1 || res.RolledOver != 1 || res.Failed != 0 {
		t.Errorf("rollover policy result: %+v", res)
	}
	if res.Instantiated != 1 {
		t.Errorf("instantiated=%d, want today's instance", res.Instantiated)
	}
}

func TestRolloverBreaksStreakAfterSilentGap(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	tplID, err := svc.CreateTemplate(ctx, CreateTemplateInput{
		Title:      "Journal",
		QuestType:  QuestHabit,
		Recurrence: RecurrenceDaily,
		Skill:      "Reflection",
		Difficulty: DifficultyTrivial,
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	setDay(t, svc, "2026-03-01")
	if _, err := svc.Rollover(ctx); err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	mustComplete(t, svc, CompleteInput{QuestID: openForTemplate(t, svc, tplID)})

	// Rollover never runs for eight days, so no quest rows exist for the
	// gap. The misses must still be found and must break the streak.
	setDay(t, svc, "2026-03-10")
	res, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("gap Rollover: %v", err)
	}
	if res.Expired != 0 {
		t.Errorf("Expired=%d, want 0 (no rows existed for the gap)", res.Expired)
	}
	if res.StreaksBroken != 1 {
		t.Errorf("StreaksBroken=%d, want 1", res.StreaksBroken)
	}

	// A second run walks nothing: the gap is already settled.
	again, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("repeat Rollover: %v", err)
	}
	if again.StreaksBroken != 0 {
		t.Errorf("repeat StreaksBroken=%d, want 0", again.StreaksBroken)
	}

	done := mustComplete(t, svc, CompleteInput{QuestID: openForTemplate(t, svc, tplID)})
	if done.Streak != 1 {
		t.Errorf("streak after gap=%d, want fresh 1", done.Streak)
	}
}

func TestRolloverWalksGapFromLastCompletion(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	tplID, err := svc.CreateTemplate(ctx, CreateTemplateInput{
		Title:      "Pushups",
		QuestType:  QuestHabit,
		Recurrence: RecurrenceDaily,
		Skill:      "Strength",
		Difficulty: DifficultyTrivial,
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	// Two ad-hoc completions with no rollover in between. Those days must
	// not count as misses when the late run walks the gap.
	for _, day := range []string{"2026-03-01", "2026-03-02"} {
		setDay(t, svc, day)
		id := mustCreateQuest(t, svc, CreateQuestInput{
			Title:      "Pushups",
			QuestType:  QuestHabit,
			Skill:      "Strength",
			Difficulty: DifficultyTrivial,
			TemplateID: &tplID,
		})
		mustComplete(t, svc, CompleteInput{QuestID: id})
	}

	// Only 03-03 was actually missed; forgiveness absorbs it.
	setDay(t, svc, "2026-03-04")
	res, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	if res.StreaksBroken != 0 {
		t.Errorf("StreaksBroken=%d, want 0 (single miss is forgiven)", res.StreaksBroken)
	}
	done := mustComplete(t, svc, CompleteInput{QuestID: openForTemplate(t, svc, tplID)})
	if done.Streak != 3 {
		t.Errorf("streak=%d, want 3", done.Streak)
	}
}

func TestAdHocTemplateQuestExpiresAtRollover(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	tplID, err := svc.CreateTemplate(ctx, CreateTemplateInput{
		Title:      "Pushups",
		QuestType:  QuestHabit,
		Recurrence: RecurrenceDaily,
		Skill:      "Strength",
		Difficulty: DifficultyTrivial,
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	setDay(t, svc, "2026-03-01")
	id := mustCreateQuest(t, svc, CreateQuestInput{
		Title:      "Pushups",
		QuestType:  QuestHabit,
		Skill:      "Strength",
		Difficulty: DifficultyTrivial,
		TemplateID: &tplID,
	})

	// Never completed: the ad-hoc row has no schedule day but still fails
	// at the next day boundary, by its default end-of-day due date.
	setDay(t, svc, "2026-03-02")
	res, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	if res.Expired != 1 || res.Failed != 1 {
		t.Fatalf("rollover result: %+v, want the ad-hoc row expired and failed", res)
	}

	quests, err := svc.ListQuests(ctx, true)
	if err != nil {
		t.Fatalf("ListQuests: %v", err)
	}
	for _, q := range quests {
		if q.ID == id && Status(q.Status) != StatusFailed {
			t.Errorf("ad-hoc quest status=%s, want failed", q.Status)
		}
	}
}

func TestRetiredTemplateStopsInstantiating(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	tplID, err := svc.CreateTemplate(ctx, CreateTemplateInput{
		Title:      "Journal",
		QuestType:  QuestHabit,
		Recurrence: RecurrenceDaily,
		Skill:      "Reflection",
		Difficulty: DifficultyTrivial,
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	setDay(t, svc, "2026-03-01")
	res, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	if res.Instantiated != 1 {
		t.Fatalf("instantiated=%d, want 1", res.Instantiated)
	}
	mustComplete(t, svc, CompleteInput{QuestID: openForTemplate(t, svc, tplID)})

	if err := svc.RetireTemplate(ctx, tplID); err != nil {
		t.Fatalf("RetireTemplate: %v", err)
	}

	setDay(t, svc, "2026-03-02")
	res, err = svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("Rollover after retire: %v", err)
	}
	if res.Instantiated != 0 {
		t.Errorf("retired template instantiated=%d, want 0", res.Instantiated)
	}
}

func TestWeeklyRecurrenceFiresOnMonday(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, CreateTemplateInput{
		Title:      "Weekly review",
		QuestType:  QuestChallenge,
		Recurrence: RecurrenceWeekly,
		Skill:      "Reflection",
		Difficulty: DifficultyMedium,
	}); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	// 2026-03-01 is a Sunday, 2026-03-02 a Monday.
	setDay(t, svc, "2026-03-01")
	res, err := svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("Sunday Rollover: %v", err)
	}
	if res.Instantiated != 0 {
		t.Errorf("Sunday instantiated=%d, want 0", res.Instantiated)
	}

	setDay(t, svc, "2026-03-02")
	res, err = svc.Rollover(ctx)
	if err != nil {
		t.Fatalf("Monday Rollover: %v", err)
	}
	if res.Instantiated != 1 {
		t.Errorf("Monday instantiated=%d, want 1", res.Instantiated)
	}
}
