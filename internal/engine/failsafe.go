package engine

import "log/slog"

// Guard is the fail-safe collaborator boundary. A caller whose own write
// must not depend on gamification (health log, journal entry, voice
// command) runs the engine call through Guard: errors are logged and
// swallowed, never propagated, and the zero result plus ok=false come
// back instead.
func Guard[T any](logger *slog.Logger, op string, fn func() (T, error)) (T, bool) {
	var zero T
	if logger == nil {
		logger = slog.Default()
	}
	v, err := fn()
	if err != nil {
		logger.Warn("gamification skipped", "op", op, "error", err)
		return zero, false
	}
	return v, true
}

// GuardErr is Guard for operations with no result value.
func GuardErr(logger *slog.Logger, op string, fn func() error) bool {
	if logger == nil {
		logger = slog.Default()
	}
	if err := fn(); err != nil {
		logger.Warn("gamification skipped", "op", op, "error", err)
		return false
	}
	return true
}
