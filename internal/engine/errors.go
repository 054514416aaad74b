package engine

import "fmt"

// InvalidTransitionError indicates a quest state machine violation, e.g.
// completing an already-completed quest through a non-idempotent path.
type InvalidTransitionError struct {
	QuestID int64
	From    Status
	To      Status
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("quest %d: illegal transition %s -> %s", e.QuestID, e.From, e.To)
}

// NotFoundError indicates the referenced quest or template does not exist.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// ValidationError indicates bad input rejected before any state change.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// StoreUnavailableError wraps persistence failures. Operations failing with
// it are retryable under the same idempotency key.
type StoreUnavailableError struct {
	Err error
}

func (e StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e StoreUnavailableError) Unwrap() error { return e.Err }
