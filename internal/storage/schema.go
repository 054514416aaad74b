package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS skills (
			name TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			xp_total INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS quest_templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			quest_type TEXT NOT NULL,
			recurrence TEXT NOT NULL DEFAULT 'none',
			domain TEXT NOT NULL,
			skill TEXT NOT NULL,
			difficulty INTEGER NOT NULL DEFAULT 1,
			base_xp INTEGER NOT NULL,
			estimated_minutes INTEGER NOT NULL DEFAULT 0,
			rollover_policy TEXT NOT NULL DEFAULT 'fail',
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,

			FOREIGN KEY(skill) REFERENCES skills(name)
		);`,
		`CREATE TABLE IF NOT EXISTS quests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			template_id INTEGER NULL,
			parent_id INTEGER NULL,
			step_number INTEGER NULL,
			title TEXT NOT NULL,
			quest_type TEXT NOT NULL,
			domain TEXT NOT NULL,
			skill TEXT NOT NULL,
			difficulty INTEGER NOT NULL DEFAULT 1,
			xp_reward INTEGER NOT NULL DEFAULT 0,
			estimated_minutes INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			due_date DATETIME NULL,
			schedule_day TEXT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME NULL,

			FOREIGN KEY(template_id) REFERENCES quest_templates(id),
			FOREIGN KEY(parent_id) REFERENCES quests(id)
		);`,
		// Status history is append-only; quests.status is a cache of the
		// latest row here.
		`CREATE TABLE IF NOT EXISTS quest_transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			quest_id INTEGER NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			source TEXT NOT NULL,
			at DATETIME NOT NULL,
			FOREIGN KEY(quest_id) REFERENCES quests(id)
		);`,
		// Awards are immutable facts. requested and applied differ when the
		// regulator clips; both are kept for audit.
		`CREATE TABLE IF NOT EXISTS xp_awards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			skill TEXT NOT NULL,
			requested INTEGER NOT NULL,
			applied INTEGER NOT NULL,
			source TEXT NOT NULL,
			clip_reason TEXT NOT NULL DEFAULT '',
			idempotency_key TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL,
			FOREIGN KEY(skill) REFERENCES skills(name)
		);`,
		`CREATE TABLE IF NOT EXISTS streaks (
			template_id INTEGER PRIMARY KEY,
			consecutive INTEGER NOT NULL DEFAULT 0,
			last_completed_day TEXT NOT NULL DEFAULT '',
			tokens_remaining INTEGER NOT NULL DEFAULT 0,
			window_start TEXT NOT NULL DEFAULT '',
			settled_through TEXT NOT NULL DEFAULT '',
			FOREIGN KEY(template_id) REFERENCES quest_templates(id)
		);`,
		// One scheduled quest per template per day; ad-hoc quests leave
		// schedule_day NULL, which UNIQUE ignores in SQLite.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_quests_template_day ON quests(template_id, schedule_day);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_quests_parent_step ON quests(parent_id, step_number);`,
		`CREATE INDEX IF NOT EXISTS idx_quests_status ON quests(status);`,
		`CREATE INDEX IF NOT EXISTS idx_quest_transitions_quest_id ON quest_transitions(quest_id);`,
		`CREATE INDEX IF NOT EXISTS idx_xp_awards_created_at ON xp_awards(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_xp_awards_skill ON xp_awards(skill);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Columns added after the initial schema; "duplicate column" means the
	// table already has it.
	alterStmts := []string{
		`ALTER TABLE streaks ADD COLUMN settled_through TEXT NOT NULL DEFAULT '';`,
	}
	for _, stmt := range alterStmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("migrate alter: %w", err)
		}
	}
	return nil
}
