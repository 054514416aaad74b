package engine

import (
	"math"
	"testing"

	"lifequest/internal/storage"
)

func TestStreakMultiplierSaturates(t *testing.T) {
	reg := NewRegulator(DefaultConfig())

	if got := reg.StreakMultiplier(0); got != 1 {
		t.Errorf("StreakMultiplier(0)=%f, want 1", got)
	}
	prev := 1.0
	for n := 1; n <= 14; n++ {
		m := reg.StreakMultiplier(n)
		if m <= prev {
			t.Fatalf("StreakMultiplier(%d)=%f, not increasing (prev %f)", n, m, prev)
		}
		prev = m
	}
	// Flat beyond the cap: a year-long streak pays no more than the cap.
	atCap := reg.StreakMultiplier(14)
	if got := reg.StreakMultiplier(365); got != atCap {
		t.Errorf("StreakMultiplier(365)=%f, want %f", got, atCap)
	}
	if atCap >= 1.5 {
		t.Errorf("cap multiplier %f should stay below 1+rate", atCap)
	}
}

func TestRepeatFactorDecaysToFloor(t *testing.T) {
	reg := NewRegulator(DefaultConfig())

	if got := reg.RepeatFactor(0); got != 1 {
		t.Errorf("RepeatFactor(0)=%f, want 1", got)
	}
	want := []float64{0.5, 0.25, 0.125, 0.0625}
	for i, w := range want {
		if got := reg.RepeatFactor(i + 1); math.Abs(got-w) > 1e-9 {
			t.Errorf("RepeatFactor(%d)=%f, want %f", i+1, got, w)
		}
	}
	// Never zero: the floor holds no matter how many repeats.
	if got := reg.RepeatFactor(50); got != 0.05 {
		t.Errorf("RepeatFactor(50)=%f, want floor 0.05", got)
	}
}

func TestClipHeadroom(t *testing.T) {
	reg := NewRegulator(DefaultConfig()) // ceiling 1200

	if applied, reason := reg.Clip(500, 0); applied != 500 || reason != ClipNone {
		t.Errorf("Clip(500,0)=(%d,%q)", applied, reason)
	}
	if applied, reason := reg.Clip(500, 1000); applied != 200 || reason != ClipDailyCeiling {
		t.Errorf("Clip(500,1000)=(%d,%q), want (200, daily_ceiling)", applied, reason)
	}
	if applied, reason := reg.Clip(10, 1200); applied != 0 || reason != ClipDailyCeiling {
		t.Errorf("Clip(10,1200)=(%d,%q), want (0, daily_ceiling)", applied, reason)
	}
	if applied, reason := reg.Clip(0, 0); applied != 0 || reason != ClipNone {
		t.Errorf("Clip(0,0)=(%d,%q)", applied, reason)
	}
}

func TestRecordCompletion(t *testing.T) {
	reg := NewRegulator(DefaultConfig())
	st := &storage.StreakState{TemplateID: 1}

	if milestone := reg.RecordCompletion(st, "2026-03-01"); milestone {
		t.Error("first completion should not be a milestone")
	}
	if st.Consecutive != 1 || st.TokensRemaining != 1 {
		t.Fatalf("after first completion: %+v", st)
	}

	// Same day again: count unchanged.
	reg.RecordCompletion(st, "2026-03-01")
	if st.Consecutive != 1 {
		t.Errorf("same-day completion bumped streak to %d", st.Consecutive)
	}

	// Walk to the first milestone.
	days := []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06"}
	for _, d := range days {
		if reg.RecordCompletion(st, d) {
			t.Fatalf("unexpected milestone at %s (streak %d)", d, st.Consecutive)
		}
	}
	if !reg.RecordCompletion(st, "2026-03-07") {
		t.Errorf("day 7 should be a milestone, streak %d", st.Consecutive)
	}
}

func TestRecordMissForgiveness(t *testing.T) {
	reg := NewRegulator(DefaultConfig()) // one miss per 7-day window
	st := &storage.StreakState{TemplateID: 1}
	reg.RecordCompletion(st, "2026-03-01")
	reg.RecordCompletion(st, "2026-03-02")

	// First miss inside the window is absorbed.
	reg.RecordMiss(st, "2026-03-03")
	if st.Consecutive != 2 {
		t.Fatalf("forgiven miss reset streak: %+v", st)
	}
	if st.TokensRemaining != 0 {
		t.Fatalf("token not consumed: %+v", st)
	}

	// Second miss in the same window breaks the streak.
	reg.RecordMiss(st, "2026-03-05")
	if st.Consecutive != 0 {
		t.Errorf("second miss should reset streak, got %d", st.Consecutive)
	}
}

func TestRecordMissWindowRefresh(t *testing.T) {
	reg := NewRegulator(DefaultConfig())
	st := &storage.StreakState{TemplateID: 1}
	reg.RecordCompletion(st, "2026-03-01")
	reg.RecordMiss(st, "2026-03-03")
	if st.TokensRemaining != 0 {
		t.Fatalf("setup: %+v", st)
	}

	// A miss after the window elapses draws from a fresh token.
	reg.RecordMiss(st, "2026-03-09")
	if st.Consecutive != 1 {
		t.Errorf("refreshed-window miss should be forgiven, got streak %d", st.Consecutive)
	}
	if st.WindowStart != "2026-03-09" {
		t.Errorf("window start not refreshed: %q", st.WindowStart)
	}
}
