package engine

import "strings"

type Domain string

const (
	DomainBody Domain = "BODY"
	DomainMind Domain = "MIND"
	DomainSoul Domain = "SOUL"
)

func (d Domain) IsValid() bool {
	switch d {
	case DomainBody, DomainMind, DomainSoul:
		return true
	default:
		return false
	}
}

// ParseDomain parses user input to a Domain. Unrecognized input falls back
// to MIND.
func ParseDomain(input string) Domain {
	d := Domain(strings.TrimSpace(strings.ToUpper(input)))
	if d.IsValid() {
		return d
	}
	return DomainMind
}

// SkillNames is the fixed progression set: four skills per domain, created
// at initialization and never deleted.
var SkillNames = map[Domain][]string{
	DomainBody: {"Strength", "Endurance", "Nutrition", "Recovery"},
	DomainMind: {"Focus", "Learning", "Craft", "Career"},
	DomainSoul: {"Reflection", "Courage", "Connection", "Creativity"},
}

// SkillDomain returns the domain a skill belongs to, or false if the skill
// name is unknown.
func SkillDomain(skill string) (Domain, bool) {
	for d, names := range SkillNames {
		for _, n := range names {
			if n == skill {
				return d, true
			}
		}
	}
	return "", false
}

type QuestType string

const (
	QuestDaily     QuestType = "daily"
	QuestProject   QuestType = "project"
	QuestHabit     QuestType = "habit"
	QuestChallenge QuestType = "challenge"
	QuestRest      QuestType = "rest"
)

func (t QuestType) IsValid() bool {
	switch t {
	case QuestDaily, QuestProject, QuestHabit, QuestChallenge, QuestRest:
		return true
	default:
		return false
	}
}

func ParseQuestType(input string) (QuestType, bool) {
	t := QuestType(strings.TrimSpace(strings.ToLower(input)))
	return t, t.IsValid()
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledOver Status = "rolled_over"
)

// allowedTransitions is the closed transition table. completed, failed and
// rolled_over are terminal.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusFailed, StatusRolledOver},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusRolledOver},
}

// CanTransition reports whether from -> to is a legal quest status change.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Difficulty int

const (
	DifficultyTrivial Difficulty = 1
	DifficultyEasy    Difficulty = 2
	DifficultyMedium  Difficulty = 3
	DifficultyHard    Difficulty = 4
	DifficultyEpic    Difficulty = 5
)

func (d Difficulty) IsValid() bool {
	return d >= DifficultyTrivial && d <= DifficultyEpic
}

type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

type RolloverPolicy string

const (
	RolloverFail     RolloverPolicy = "fail"
	RolloverRecreate RolloverPolicy = "rollover"
)
