package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type SkillRepo struct {
	db DBTX
}

func NewSkillRepo(db DBTX) *SkillRepo {
	return &SkillRepo{db: db}
}

// Seed inserts any missing skill rows. Existing rows (and their XP) are
// untouched, so it is safe to run at every startup.
func (r *SkillRepo) Seed(ctx context.Context, skills []Skill) error {
	for _, s := range skills {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO skills (name, domain, xp_total) VALUES (?, ?, 0)
			ON CONFLICT(name) DO NOTHING
		`, s.Name, s.Domain)
		if err != nil {
			return fmt.Errorf("skill seed %s: %w", s.Name, err)
		}
	}
	return nil
}

func (r *SkillRepo) Get(ctx context.Context, name string) (*Skill, error) {
	row := r.db.QueryRowContext(ctx, `SELECT name, domain, xp_total FROM skills WHERE name = ?`, name)
	var s Skill
	if err := row.Scan(&s.Name, &s.Domain, &s.XPTotal); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("skill get: %w", err)
	}
	return &s, nil
}

func (r *SkillRepo) ListAll(ctx context.Context) ([]Skill, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, domain, xp_total FROM skills ORDER BY domain, name`)
	if err != nil {
		return nil, fmt.Errorf("skill list: %w", err)
	}
	defer rows.Close()

	var out []Skill
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.Name, &s.Domain, &s.XPTotal); err != nil {
			return nil, fmt.Errorf("skill scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("skill rows: %w", err)
	}
	return out, nil
}

func (r *SkillRepo) UpdateXP(ctx context.Context, name string, xpTotal int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE skills SET xp_total = ? WHERE name = ?`, xpTotal, name)
	if err != nil {
		return fmt.Errorf("skill update xp: %w", err)
	}
	return nil
}
