package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type TemplateRepo struct {
	db DBTX
}

func NewTemplateRepo(db DBTX) *TemplateRepo {
	return &TemplateRepo{db: db}
}

type TemplateInsert struct {
	Title            string
	QuestType        string
	Recurrence       string
	Domain           string
	Skill            string
	Difficulty       int
	BaseXP           int
	EstimatedMinutes int
	RolloverPolicy   string
}

func (r *TemplateRepo) Insert(ctx context.Context, in TemplateInsert) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO quest_templates (
			title, quest_type, recurrence, domain, skill,
			difficulty, base_xp, estimated_minutes, rollover_policy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.Title, in.QuestType, in.Recurrence, in.Domain, in.Skill,
		in.Difficulty, in.BaseXP, in.EstimatedMinutes, in.RolloverPolicy)
	if err != nil {
		return 0, fmt.Errorf("template insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("template last insert id: %w", err)
	}
	return id, nil
}

func (r *TemplateRepo) Get(ctx context.Context, id int64) (*QuestTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, quest_type, recurrence, domain, skill,
			difficulty, base_xp, estimated_minutes, rollover_policy, active, created_at
		FROM quest_templates
		WHERE id = ?
	`, id)
	return scanTemplate(row)
}

func (r *TemplateRepo) ListActive(ctx context.Context) ([]QuestTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, quest_type, recurrence, domain, skill,
			difficulty, base_xp, estimated_minutes, rollover_policy, active, created_at
		FROM quest_templates
		WHERE active = 1
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("template list: %w", err)
	}
	defer rows.Close()

	var out []QuestTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("template rows: %w", err)
	}
	return out, nil
}

// Deactivate retires a template prospectively. Existing quest rows keep
// referencing it; no new quests are instantiated from it.
func (r *TemplateRepo) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE quest_templates SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("template deactivate: %w", err)
	}
	return nil
}

func scanTemplate(row scanner) (*QuestTemplate, error) {
	var t QuestTemplate
	var active int
	if err := row.Scan(
		&t.ID, &t.Title, &t.QuestType, &t.Recurrence, &t.Domain, &t.Skill,
		&t.Difficulty, &t.BaseXP, &t.EstimatedMinutes, &t.RolloverPolicy, &active, &t.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("template scan: %w", err)
	}
	t.Active = active != 0
	return &t, nil
}
