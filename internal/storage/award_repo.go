package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type AwardRepo struct {
	db DBTX
}

func NewAwardRepo(db DBTX) *AwardRepo {
	return &AwardRepo{db: db}
}

func (r *AwardRepo) Insert(ctx context.Context, a XPAward) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO xp_awards (skill, requested, applied, source, clip_reason, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.Skill, a.Requested, a.Applied, a.Source, a.ClipReason, a.IdempotencyKey, a.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("award insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("award last insert id: %w", err)
	}
	return id, nil
}

// GetByKey returns the award applied under the idempotency key, or nil.
func (r *AwardRepo) GetByKey(ctx context.Context, key string) (*XPAward, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, skill, requested, applied, source, clip_reason, idempotency_key, created_at
		FROM xp_awards
		WHERE idempotency_key = ?
	`, key)
	return scanAward(row)
}

// AppliedSince sums the applied XP across all skills after the cutoff.
// This is the rolling-window total the daily ceiling is checked against.
func (r *AwardRepo) AppliedSince(ctx context.Context, since time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(applied), 0) FROM xp_awards WHERE created_at >= ?
	`, since)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("applied since: %w", err)
	}
	return n, nil
}

func (r *AwardRepo) ListSince(ctx context.Context, since time.Time) ([]XPAward, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, skill, requested, applied, source, clip_reason, idempotency_key, created_at
		FROM xp_awards
		WHERE created_at >= ?
		ORDER BY id ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("award list: %w", err)
	}
	defer rows.Close()

	var out []XPAward
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("award rows: %w", err)
	}
	return out, nil
}

func scanAward(row scanner) (*XPAward, error) {
	var a XPAward
	if err := row.Scan(&a.ID, &a.Skill, &a.Requested, &a.Applied, &a.Source, &a.ClipReason, &a.IdempotencyKey, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("award scan: %w", err)
	}
	return &a, nil
}
