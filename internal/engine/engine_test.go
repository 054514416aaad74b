package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"lifequest/internal/storage"
)

func newTestService(t *testing.T) (*Service, func()) {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	db, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	svc := NewService(db, DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := svc.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	cleanup := func() {
		_ = db.Close()
	}
	return svc, cleanup
}

// setDay pins the service clock to noon UTC on the given day.
func setDay(t *testing.T, svc *Service, day string) {
	t.Helper()
	d, err := time.Parse(DayFormat, day)
	if err != nil {
		t.Fatalf("parse day %q: %v", day, err)
	}
	at := d.Add(12 * time.Hour)
	svc.now = func() time.Time { return at }
}

func mustCreateQuest(t *testing.T, svc *Service, in CreateQuestInput) int64 {
	t.Helper()
	id, err := svc.CreateQuest(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateQuest(%q): %v", in.Title, err)
	}
	return id
}

func mustComplete(t *testing.T, svc *Service, in CompleteInput) *CompleteResult {
	t.Helper()
	res, err := svc.CompleteQuest(context.Background(), in)
	if err != nil {
		t.Fatalf("CompleteQuest(%d): %v", in.QuestID, err)
	}
	return res
}

func skillXP(t *testing.T, svc *Service, skill string) int {
	t.Helper()
	snaps, err := svc.Skills(context.Background())
	if err != nil {
		t.Fatalf("Skills: %v", err)
	}
	for _, sn := range snaps {
		if sn.Skill == skill {
			return sn.XP
		}
	}
	t.Fatalf("skill %q not found", skill)
	return 0
}
