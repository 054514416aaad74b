package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedFocus(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := NewSkillRepo(db).Seed(context.Background(), []Skill{{Name: "Focus", Domain: "MIND"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func insertTemplate(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	id, err := NewTemplateRepo(db).Insert(context.Background(), TemplateInsert{
		Title: "Read", QuestType: "habit", Recurrence: "daily",
		Domain: "MIND", Skill: "Focus", Difficulty: 2, BaseXP: 35,
		RolloverPolicy: "fail",
	})
	if err != nil {
		t.Fatalf("template insert: %v", err)
	}
	return id
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	// Open already migrated once; a second pass must be harmless.
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestAwardKeyUnique(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedFocus(t, db)

	awards := NewAwardRepo(db)
	a := XPAward{Skill: "Focus", Requested: 10, Applied: 10, Source: "t", IdempotencyKey: "k1", CreatedAt: time.Now().UTC()}
	if _, err := awards.Insert(ctx, a); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := awards.Insert(ctx, a); err == nil {
		t.Fatal("duplicate idempotency key accepted")
	}

	got, err := awards.GetByKey(ctx, "k1")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got == nil || got.Applied != 10 {
		t.Fatalf("GetByKey: %+v", got)
	}
	if missing, err := awards.GetByKey(ctx, "k2"); err != nil || missing != nil {
		t.Fatalf("GetByKey(k2)=(%+v, %v), want nil", missing, err)
	}
}

func TestAppliedSinceSumsWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedFocus(t, db)

	awards := NewAwardRepo(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []XPAward{
		{Skill: "Focus", Requested: 100, Applied: 100, Source: "t", IdempotencyKey: "a", CreatedAt: now.Add(-30 * time.Hour)},
		{Skill: "Focus", Requested: 50, Applied: 40, Source: "t", IdempotencyKey: "b", CreatedAt: now.Add(-2 * time.Hour)},
		{Skill: "Focus", Requested: 30, Applied: 30, Source: "t", IdempotencyKey: "c", CreatedAt: now.Add(-1 * time.Hour)},
	}
	for _, a := range rows {
		if _, err := awards.Insert(ctx, a); err != nil {
			t.Fatalf("insert %s: %v", a.IdempotencyKey, err)
		}
	}

	got, err := awards.AppliedSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("AppliedSince: %v", err)
	}
	if got != 70 {
		t.Errorf("AppliedSince=%d, want 70 (old row excluded, applied not requested)", got)
	}
}

func TestScheduledQuestUniquePerTemplateDay(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedFocus(t, db)
	tplID := insertTemplate(t, db)

	quests := NewQuestRepo(db)
	day := "2026-03-01"
	ins := QuestInsert{
		TemplateID: &tplID, Title: "Read", QuestType: "habit",
		Domain: "MIND", Skill: "Focus", Difficulty: 2, XPReward: 35,
		Status: "pending", ScheduleDay: &day,
	}
	if _, err := quests.Insert(ctx, ins); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := quests.Insert(ctx, ins); err == nil {
		t.Fatal("second scheduled instance for the same day accepted")
	}

	// Ad-hoc repeats leave schedule_day NULL and are not constrained.
	ins.ScheduleDay = nil
	if _, err := quests.Insert(ctx, ins); err != nil {
		t.Fatalf("ad-hoc insert: %v", err)
	}
	if _, err := quests.Insert(ctx, ins); err != nil {
		t.Fatalf("second ad-hoc insert: %v", err)
	}

	exists, err := quests.ExistsForTemplateDay(ctx, tplID, day)
	if err != nil || !exists {
		t.Fatalf("ExistsForTemplateDay=(%v, %v), want true", exists, err)
	}
}

func TestListOpenDueBefore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedFocus(t, db)
	tplID := insertTemplate(t, db)

	quests := NewQuestRepo(db)
	old, today := "2026-03-01", "2026-03-02"
	oldID, err := quests.Insert(ctx, QuestInsert{
		TemplateID: &tplID, Title: "Read", QuestType: "habit",
		Domain: "MIND", Skill: "Focus", Difficulty: 2, XPReward: 35,
		Status: "pending", ScheduleDay: &old,
	})
	if err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if _, err := quests.Insert(ctx, QuestInsert{
		TemplateID: &tplID, Title: "Read", QuestType: "habit",
		Domain: "MIND", Skill: "Focus", Difficulty: 2, XPReward: 35,
		Status: "pending", ScheduleDay: &today,
	}); err != nil {
		t.Fatalf("insert today: %v", err)
	}
	if _, err := quests.Insert(ctx, QuestInsert{
		Title: "Ad hoc", QuestType: "daily",
		Domain: "MIND", Skill: "Focus", Difficulty: 2, XPReward: 35,
		Status: "pending",
	}); err != nil {
		t.Fatalf("insert ad hoc: %v", err)
	}

	// A template-linked row without a schedule day expires by due date.
	overdue := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	overdueID, err := quests.Insert(ctx, QuestInsert{
		TemplateID: &tplID, Title: "Read", QuestType: "habit",
		Domain: "MIND", Skill: "Focus", Difficulty: 2, XPReward: 35,
		Status: "pending", DueDate: &overdue,
	})
	if err != nil {
		t.Fatalf("insert overdue ad hoc: %v", err)
	}

	stale, err := quests.ListOpenDueBefore(ctx, today)
	if err != nil {
		t.Fatalf("ListOpenDueBefore: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("stale=%+v, want the old scheduled quest and the overdue ad-hoc one", stale)
	}
	want := map[int64]bool{oldID: true, overdueID: true}
	for _, q := range stale {
		if !want[q.ID] {
			t.Errorf("unexpected stale quest %d", q.ID)
		}
	}
}

func TestStreakUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedFocus(t, db)
	tplID := insertTemplate(t, db)

	streaks := NewStreakRepo(db)
	if st, err := streaks.Get(ctx, tplID); err != nil || st != nil {
		t.Fatalf("Get before upsert=(%+v, %v), want nil", st, err)
	}

	if err := streaks.Upsert(ctx, StreakState{TemplateID: tplID, Consecutive: 3, LastCompletedDay: "2026-03-01", TokensRemaining: 1, WindowStart: "2026-02-27"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := streaks.Upsert(ctx, StreakState{TemplateID: tplID, Consecutive: 4, LastCompletedDay: "2026-03-02", TokensRemaining: 0, WindowStart: "2026-02-27", SettledThrough: "2026-03-01"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	st, err := streaks.Get(ctx, tplID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Consecutive != 4 || st.LastCompletedDay != "2026-03-02" || st.TokensRemaining != 0 || st.SettledThrough != "2026-03-01" {
		t.Fatalf("streak after upsert: %+v", st)
	}
}

func TestTransitionLogOrdered(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedFocus(t, db)

	quests := NewQuestRepo(db)
	qid, err := quests.Insert(ctx, QuestInsert{
		Title: "Stretch", QuestType: "daily",
		Domain: "BODY", Skill: "Flexibility", Difficulty: 1, XPReward: 15,
		Status: "pending",
	})
	if err != nil {
		t.Fatalf("insert quest: %v", err)
	}

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	steps := []QuestTransition{
		{QuestID: qid, FromStatus: "pending", ToStatus: "in_progress", Source: "manual", At: at},
		{QuestID: qid, FromStatus: "in_progress", ToStatus: "completed", Source: "manual", At: at.Add(time.Hour)},
	}
	for _, tr := range steps {
		if err := quests.InsertTransition(ctx, tr); err != nil {
			t.Fatalf("insert transition: %v", err)
		}
	}

	got, err := quests.ListTransitions(ctx, qid)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2", len(got))
	}
	if got[0].ToStatus != "in_progress" || got[1].ToStatus != "completed" {
		t.Fatalf("transitions out of order: %+v", got)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedFocus(t, db)

	boom := errors.New("boom")
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := NewSkillRepo(tx).UpdateXP(ctx, "Focus", 500); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err=%v, want boom", err)
	}

	sk, err := NewSkillRepo(db).Get(ctx, "Focus")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sk.XPTotal != 0 {
		t.Errorf("rolled-back write persisted: XPTotal=%d", sk.XPTotal)
	}
}
