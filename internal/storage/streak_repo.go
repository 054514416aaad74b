package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type StreakRepo struct {
	db DBTX
}

func NewStreakRepo(db DBTX) *StreakRepo {
	return &StreakRepo{db: db}
}

func (r *StreakRepo) Get(ctx context.Context, templateID int64) (*StreakState, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT template_id, consecutive, last_completed_day, tokens_remaining, window_start, settled_through
		FROM streaks
		WHERE template_id = ?
	`, templateID)
	var s StreakState
	if err := row.Scan(&s.TemplateID, &s.Consecutive, &s.LastCompletedDay, &s.TokensRemaining, &s.WindowStart, &s.SettledThrough); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("streak get: %w", err)
	}
	return &s, nil
}

func (r *StreakRepo) Upsert(ctx context.Context, s StreakState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO streaks (template_id, consecutive, last_completed_day, tokens_remaining, window_start, settled_through)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(template_id) DO UPDATE SET
			consecutive = excluded.consecutive,
			last_completed_day = excluded.last_completed_day,
			tokens_remaining = excluded.tokens_remaining,
			window_start = excluded.window_start,
			settled_through = excluded.settled_through
	`, s.TemplateID, s.Consecutive, s.LastCompletedDay, s.TokensRemaining, s.WindowStart, s.SettledThrough)
	if err != nil {
		return fmt.Errorf("streak upsert: %w", err)
	}
	return nil
}
