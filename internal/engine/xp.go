package engine

import (
	"fmt"
	"math"
)

// Difficulty bands. Base XP is the band midpoint; the historical
// multiplier moves it within (and slightly past) the band.
var difficultyBands = map[Difficulty]struct{ lo, hi int }{
	DifficultyTrivial: {10, 20},
	DifficultyEasy:    {20, 50},
	DifficultyMedium:  {50, 100},
	DifficultyHard:    {100, 250},
	DifficultyEpic:    {250, 500},
}

// BandMidpoint returns the midpoint XP for a difficulty tier.
func BandMidpoint(d Difficulty) (int, error) {
	band, ok := difficultyBands[d]
	if !ok {
		return 0, fmt.Errorf("invalid difficulty: %d", d)
	}
	return (band.lo + band.hi) / 2, nil
}

// BaseXP prices a quest at creation time. With fewer than
// cfg.HistoryMinSamples completed instances of the template, the midpoint
// is used unmodified (cold start). Otherwise the midpoint is scaled by
// meanActualMinutes/estimatedMinutes, clamped to the config bounds: quests
// that consistently take longer than estimated are worth more.
func BaseXP(cfg Config, d Difficulty, estimatedMinutes int, samples int, meanActualMinutes float64) (int, error) {
	mid, err := BandMidpoint(d)
	if err != nil {
		return 0, err
	}
	if samples < cfg.HistoryMinSamples || estimatedMinutes <= 0 || meanActualMinutes <= 0 {
		return mid, nil
	}

	mult := meanActualMinutes / float64(estimatedMinutes)
	if mult < cfg.MultiplierMin {
		mult = cfg.MultiplierMin
	}
	if mult > cfg.MultiplierMax {
		mult = cfg.MultiplierMax
	}
	return int(math.Round(float64(mid) * mult)), nil
}

// CompletionXP applies the completion-time multipliers to a quest's base
// XP: the streak bonus (1.0 for non-habits) and the partial-credit
// fraction. Rounded to nearest, floored at 1 XP for any completion.
func CompletionXP(baseXP int, streakMultiplier, partialCredit float64) int {
	xp := int(math.Round(float64(baseXP) * streakMultiplier * partialCredit))
	if xp < 1 {
		xp = 1
	}
	return xp
}

// NormalizePartialCredit clamps a caller-supplied partial credit fraction.
// Full credit (>= 1) stays 1.0; anything less is capped at the configured
// partial ceiling so "good enough" never beats done.
func NormalizePartialCredit(cfg Config, credit float64) float64 {
	if credit >= 1 {
		return 1
	}
	if credit < 0 {
		credit = 0
	}
	if credit > cfg.PartialCreditCap {
		credit = cfg.PartialCreditCap
	}
	return credit
}
