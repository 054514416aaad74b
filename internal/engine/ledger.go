package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lifequest/internal/storage"
)

// AwardInput is a requested XP award. Amount may be negative: corrections
// are issued as new signed awards, never edits.
type AwardInput struct {
	Skill          string
	Amount         int
	Source         string
	IdempotencyKey string
}

// AwardResult reports what the ledger actually did.
type AwardResult struct {
	Skill       string
	Requested   int
	Applied     int
	ClipReason  string
	NewTotal    int
	LevelBefore int
	NewLevel    int
	LeveledUp   bool
	// Duplicate is true when the idempotency key had already been
	// applied; the result then reflects the prior state, unchanged.
	Duplicate bool
}

// applyAward is the single path by which skill XP changes. It runs inside
// the caller's transaction: replayed keys are no-ops returning prior
// state, positive awards pass through the daily ceiling, and a skill
// total never drops below zero.
func (s *Service) applyAward(ctx context.Context, r repos, in AwardInput) (*AwardResult, error) {
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.NewString()
	}
	if _, ok := SkillDomain(in.Skill); !ok {
		return nil, ValidationError{Msg: fmt.Sprintf("unknown skill: %q", in.Skill)}
	}

	now := s.now().UTC()

	prior, err := r.awards.GetByKey(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		sk, err := r.skills.Get(ctx, in.Skill)
		if err != nil {
			return nil, err
		}
		level := LevelForXP(sk.XPTotal)
		return &AwardResult{
			Skill:       in.Skill,
			Requested:   prior.Requested,
			Applied:     prior.Applied,
			ClipReason:  prior.ClipReason,
			NewTotal:    sk.XPTotal,
			LevelBefore: level,
			NewLevel:    level,
			Duplicate:   true,
		}, nil
	}

	sk, err := r.skills.Get(ctx, in.Skill)
	if err != nil {
		return nil, err
	}
	levelBefore := LevelForXP(sk.XPTotal)

	applied := in.Amount
	reason := ClipNone
	if in.Amount > 0 {
		windowStart := now.Add(-24 * time.Hour)
		inWindow, err := r.awards.AppliedSince(ctx, windowStart)
		if err != nil {
			return nil, err
		}
		applied, reason = s.reg.Clip(in.Amount, inWindow)
	}

	newTotal := sk.XPTotal + applied
	if newTotal < 0 {
		// Negative corrections stop at zero; record the delta actually
		// taken so the audit trail sums to the truth.
		applied = -sk.XPTotal
		newTotal = 0
	}

	if _, err := r.awards.Insert(ctx, storage.XPAward{
		Skill:          in.Skill,
		Requested:      in.Amount,
		Applied:        applied,
		Source:         in.Source,
		ClipReason:     reason,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
	}); err != nil {
		return nil, err
	}
	if err := r.skills.UpdateXP(ctx, in.Skill, newTotal); err != nil {
		return nil, err
	}

	newLevel := LevelForXP(newTotal)
	return &AwardResult{
		Skill:       in.Skill,
		Requested:   in.Amount,
		Applied:     applied,
		ClipReason:  reason,
		NewTotal:    newTotal,
		LevelBefore: levelBefore,
		NewLevel:    newLevel,
		LeveledUp:   newLevel > levelBefore,
	}, nil
}

// AwardXP applies a raw XP award from a non-quest collaborator (e.g. a
// "fear_faced" direct award from the voice pipeline).
func (s *Service) AwardXP(ctx context.Context, in AwardInput) (*AwardResult, error) {
	var res *AwardResult
	err := s.inTx(ctx, func(r repos) error {
		var err error
		res, err = s.applyAward(ctx, r, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.LeveledUp {
		s.log.Info("level up", "skill", res.Skill, "level", res.NewLevel)
	}
	return res, nil
}
