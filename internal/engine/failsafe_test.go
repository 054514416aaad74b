package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestGuardSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	v, ok := Guard(logger, "award", func() (int, error) {
		return 0, errors.New("store offline")
	})
	if ok || v != 0 {
		t.Errorf("Guard on error: (%d, %v), want zero and false", v, ok)
	}
	if !strings.Contains(buf.String(), "gamification skipped") {
		t.Errorf("failure not logged: %q", buf.String())
	}

	v, ok = Guard(logger, "award", func() (int, error) { return 42, nil })
	if !ok || v != 42 {
		t.Errorf("Guard on success: (%d, %v), want (42, true)", v, ok)
	}
}

func TestGuardErr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	if GuardErr(logger, "rollover", func() error { return errors.New("busy") }) {
		t.Error("GuardErr returned true on error")
	}
	if !GuardErr(logger, "rollover", func() error { return nil }) {
		t.Error("GuardErr returned false on success")
	}
}
