package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type QuestRepo struct {
	db DBTX
}

func NewQuestRepo(db DBTX) *QuestRepo {
	return &QuestRepo{db: db}
}

type QuestInsert struct {
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
}

const questColumns = `id, template_id, parent_id, step_number, title, quest_type, domain, skill,
	difficulty, xp_reward, estimated_minutes, status, due_date, schedule_day, created_at, completed_at`

func (r *QuestRepo) Insert(ctx context.Context, in QuestInsert) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO quests (
			template_id, parent_id, step_number, title, quest_type, domain, skill,
			difficulty, xp_reward, estimated_minutes, status, due_date, schedule_day
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.TemplateID, in.ParentID, in.StepNumber, in.Title, in.QuestType, in.Domain, in.Skill,
		in.Difficulty, in.XPReward, in.EstimatedMinutes, in.Status, in.DueDate, in.ScheduleDay)
	if err != nil {
		return 0, fmt.Errorf("quest insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("quest last insert id: %w", err)
	}
	return id, nil
}

func (r *QuestRepo) Get(ctx context.Context, id int64) (*Quest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = ?`, id)
	return scanQuest(row)
}

func (r *QuestRepo) queryQuests(ctx context.Context, query string, args ...any) ([]Quest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("quest query: %w", err)
	}
	defer rows.Close()

	var out []Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("quest rows: %w", err)
	}
	return out, nil
}

func (r *QuestRepo) ListAll(ctx context.Context) ([]Quest, error) {
	return r.queryQuests(ctx, `SELECT `+questColumns+` FROM quests ORDER BY id ASC`)
}

// ListOpen returns quests still awaiting work (pending or in_progress).
func (r *QuestRepo) ListOpen(ctx context.Context) ([]Quest, error) {
	return r.queryQuests(ctx, `
		SELECT `+questColumns+`
		FROM quests
		WHERE status IN ('pending', 'in_progress')
		ORDER BY id ASC
	`)
}

func (r *QuestRepo) ListChildren(ctx context.Context, parentID int64) ([]Quest, error) {
	return r.queryQuests(ctx, `
		SELECT `+questColumns+`
		FROM quests
		WHERE parent_id = ?
		ORDER BY step_number ASC, id ASC
	`, parentID)
}

// ListOpenDueBefore returns open quests that expired before the given day,
// for rollover processing: scheduled instances by their schedule day, and
// ad-hoc daily/habit/rest rows (schedule_day NULL) by their due date.
// Project steps never expire here.
func (r *QuestRepo) ListOpenDueBefore(ctx context.Context, day string) ([]Quest, error) {
	return r.queryQuests(ctx, `
		SELECT `+questColumns+`
		FROM quests
		WHERE status IN ('pending', 'in_progress')
			AND parent_id IS NULL
			AND (
				(schedule_day IS NOT NULL AND schedule_day < ?)
				OR (schedule_day IS NULL
					AND quest_type IN ('daily', 'habit', 'rest')
					AND due_date IS NOT NULL
					AND date(due_date) < ?)
			)
		ORDER BY COALESCE(schedule_day, date(due_date)) ASC, id ASC
	`, day, day)
}

// SetStatus updates the cached status column. Callers must append the
// matching quest_transitions row in the same transaction.
func (r *QuestRepo) SetStatus(ctx context.Context, id int64, status string, completedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE quests SET status = ?, completed_at = ? WHERE id = ?`, status, completedAt, id)
	if err != nil {
		return fmt.Errorf("quest set status: %w", err)
	}
	return nil
}

func (r *QuestRepo) InsertTransition(ctx context.Context, t QuestTransition) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quest_transitions (quest_id, from_status, to_status, source, at)
		VALUES (?, ?, ?, ?, ?)
	`, t.QuestID, t.FromStatus, t.ToStatus, t.Source, t.At)
	if err != nil {
		return fmt.Errorf("transition insert: %w", err)
	}
	return nil
}

func (r *QuestRepo) ListTransitions(ctx context.Context, questID int64) ([]QuestTransition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, quest_id, from_status, to_status, source, at
		FROM quest_transitions
		WHERE quest_id = ?
		ORDER BY id ASC
	`, questID)
	if err != nil {
		return nil, fmt.Errorf("transition list: %w", err)
	}
	defer rows.Close()

	var out []QuestTransition
	for rows.Next() {
		var t QuestTransition
		if err := rows.Scan(&t.ID, &t.QuestID, &t.FromStatus, &t.ToStatus, &t.Source, &t.At); err != nil {
			return nil, fmt.Errorf("transition scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transition rows: %w", err)
	}
	return out, nil
}

// CountCompletedForTemplateSince counts completions of a template after the
// cutoff. The diminishing-returns rule keys off this.
func (r *QuestRepo) CountCompletedForTemplateSince(ctx context.Context, templateID int64, since time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM quests
		WHERE template_id = ? AND status = 'completed' AND completed_at >= ?
	`, templateID, since)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("completed count: %w", err)
	}
	return n, nil
}

// TemplateActuals returns the sample count and mean minutes-to-complete for
// prior completed quests of the template.
func (r *QuestRepo) TemplateActuals(ctx context.Context, templateID int64) (samples int, meanMinutes float64, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG((julianday(completed_at) - julianday(created_at)) * 24 * 60), 0)
		FROM quests
		WHERE template_id = ? AND status = 'completed' AND completed_at IS NOT NULL
	`, templateID)
	if err := row.Scan(&samples, &meanMinutes); err != nil {
		return 0, 0, fmt.Errorf("template actuals: %w", err)
	}
	return samples, meanMinutes, nil
}

// ExistsForTemplateDay reports whether a quest row was already instantiated
// from the template for the given day.
func (r *QuestRepo) ExistsForTemplateDay(ctx context.Context, templateID int64, day string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM quests WHERE template_id = ? AND schedule_day = ? LIMIT 1
	`, templateID, day)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("exists for template day: %w", err)
	}
	return true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuest(row scanner) (*Quest, error) {
	var (
		q           Quest
		templateID  sql.NullInt64
		parentID    sql.NullInt64
		stepNumber  sql.NullInt64
		dueDate     sql.NullTime
		scheduleDay sql.NullString
		completedAt sql.NullTime
	)

	if err := row.Scan(
		&q.ID, &templateID, &parentID, &stepNumber, &q.Title, &q.QuestType, &q.Domain, &q.Skill,
		&q.Difficulty, &q.XPReward, &q.EstimatedMinutes, &q.Status, &dueDate, &scheduleDay,
		&q.CreatedAt, &completedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("quest scan: %w", err)
	}

	if templateID.Valid {
		v := templateID.Int64
		q.TemplateID = &v
	}
	if parentID.Valid {
		v := parentID.Int64
		q.ParentID = &v
	}
	if stepNumber.Valid {
		v := int(stepNumber.Int64)
		q.StepNumber = &v
	}
	if dueDate.Valid {
		v := dueDate.Time
		q.DueDate = &v
	}
	if scheduleDay.Valid {
		v := scheduleDay.String
		q.ScheduleDay = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		q.CompletedAt = &v
	}
	return &q, nil
}
