package storage

import "time"

type Skill struct {
	Name    string
	Domain  string
	XPTotal int
}

type QuestTemplate struct {
	ID               int64
	Title            string
	QuestType        string
	Recurrence       string
	Domain           string
	Skill            string
	Difficulty       int
	BaseXP           int
	EstimatedMinutes int
	RolloverPolicy   string
	Active           bool
	CreatedAt        time.Time
}

type Quest struct {
	ID               int64
	TemplateID       *int64
	ParentID         *int64
	StepNumber       *int
	Title            string
	QuestType        string
	Domain           string
	Skill            string
	Difficulty       int
	XPReward         int
	EstimatedMinutes int
	Status           string
	DueDate          *time.Time
	ScheduleDay      *string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

type QuestTransition struct {
	ID         int64
	QuestID    int64
	FromStatus string
	ToStatus   string
	Source     string
	At         time.Time
}

type XPAward struct {
	ID             int64
	Skill          string
	Requested      int
	Applied        int
	Source         string
	ClipReason     string
	IdempotencyKey string
	CreatedAt      time.Time
}

type StreakState struct {
	TemplateID       int64
	Consecutive      int
	LastCompletedDay string
	TokensRemaining  int
	WindowStart      string
	// SettledThrough is the most recent day whose miss-or-completion
	// status has been reconciled by rollover. Catch-up runs never walk
	// a day twice.
	SettledThrough string
}
