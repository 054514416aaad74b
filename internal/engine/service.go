package engine

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"lifequest/internal/storage"
)

// storeTimeout bounds every persistence call. A timed-out operation is
// retryable under the same idempotency key.
const storeTimeout = 5 * time.Second

// Service owns all engine state mutation. Quest, template and streak rows
// change only through it; skill totals and awards only through its ledger.
type Service struct {
	db  *sql.DB
	cfg Config
	reg *Regulator
	log *slog.Logger

	// now is swappable in tests so rolling windows and day boundaries
	// are deterministic.
	now func() time.Time
}

func NewService(db *sql.DB, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:  db,
		cfg: cfg,
		reg: NewRegulator(cfg),
		log: logger,
		now: time.Now,
	}
}

func (s *Service) Config() Config { return s.cfg }

// Init seeds the fixed skill set. Safe to call at every startup.
func (s *Service) Init(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var seed []storage.Skill
	for _, domain := range []Domain{DomainBody, DomainMind, DomainSoul} {
		for _, name := range SkillNames[domain] {
			seed = append(seed, storage.Skill{Name: name, Domain: string(domain)})
		}
	}
	if err := storage.NewSkillRepo(s.db).Seed(ctx, seed); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

// repos bundles tx-scoped repositories so one logical operation shares one
// transaction.
type repos struct {
	skills    *storage.SkillRepo
	templates *storage.TemplateRepo
	quests    *storage.QuestRepo
	awards    *storage.AwardRepo
	streaks   *storage.StreakRepo
}

func newRepos(q storage.DBTX) repos {
	return repos{
		skills:    storage.NewSkillRepo(q),
		templates: storage.NewTemplateRepo(q),
		quests:    storage.NewQuestRepo(q),
		awards:    storage.NewAwardRepo(q),
		streaks:   storage.NewStreakRepo(q),
	}
}

func (s *Service) inTx(ctx context.Context, fn func(r repos) error) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(newRepos(tx))
	})
	return storeErrUnlessEngine(err)
}

// storeErr wraps persistence failures as StoreUnavailableError.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return StoreUnavailableError{Err: err}
}

// storeErrUnlessEngine keeps engine errors (state machine violations,
// missing entities) intact and wraps everything else as a store failure.
func storeErrUnlessEngine(err error) error {
	if err == nil {
		return nil
	}
	var (
		it InvalidTransitionError
		nf NotFoundError
		ve ValidationError
		su StoreUnavailableError
	)
	if errors.As(err, &it) || errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &su) {
		return err
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		// Raced with an identical write; the idempotency guarantee makes
		// a retry read back the winner.
		return err
	}
	return StoreUnavailableError{Err: err}
}

// SkillSnapshot is the read model for status and briefing displays.
type SkillSnapshot struct {
	Skill          string  `json:"skill"`
	Domain         string  `json:"domain"`
	XP             int     `json:"xp"`
	Level          int     `json:"level"`
	ProgressToNext float64 `json:"progress_to_next"`
}

// Skills returns the current snapshot of every skill.
func (s *Service) Skills(ctx context.Context) ([]SkillSnapshot, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := storage.NewSkillRepo(s.db).ListAll(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]SkillSnapshot, 0, len(rows))
	for _, sk := range rows {
		out = append(out, SkillSnapshot{
			Skill:          sk.Name,
			Domain:         sk.Domain,
			XP:             sk.XPTotal,
			Level:          LevelForXP(sk.XPTotal),
			ProgressToNext: ProgressToNext(sk.XPTotal),
		})
	}
	return out, nil
}

// ListQuests returns open quests, or every quest when all is set.
func (s *Service) ListQuests(ctx context.Context, all bool) ([]storage.Quest, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	repo := storage.NewQuestRepo(s.db)
	var (
		quests []storage.Quest
		err    error
	)
	if all {
		quests, err = repo.ListAll(ctx)
	} else {
		quests, err = repo.ListOpen(ctx)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return quests, nil
}

// ProjectSteps returns a project's steps in step order.
func (s *Service) ProjectSteps(ctx context.Context, projectID int64) ([]storage.Quest, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	steps, err := storage.NewQuestRepo(s.db).ListChildren(ctx, projectID)
	if err != nil {
		return nil, storeErr(err)
	}
	return steps, nil
}

// RetireTemplate stops future instantiation of a template. Quests already
// created from it are untouched; template changes are prospective only.
func (s *Service) RetireTemplate(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(r repos) error {
		tpl, err := r.templates.Get(ctx, id)
		if err != nil {
			return err
		}
		if tpl == nil {
			return NotFoundError{Kind: "template", ID: id}
		}
		return r.templates.Deactivate(ctx, id)
	})
}

// Audit returns all XPAward facts (applied and clipped) since the cutoff.
func (s *Service) Audit(ctx context.Context, since time.Time) ([]storage.XPAward, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	awards, err := storage.NewAwardRepo(s.db).ListSince(ctx, since)
	if err != nil {
		return nil, storeErr(err)
	}
	return awards, nil
}
