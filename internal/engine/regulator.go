package engine

import (
	"math"
	"time"

	"lifequest/internal/storage"
)

// Clip reason codes recorded on XPAward rows.
const (
	ClipNone              = ""
	ClipDailyCeiling      = "daily_ceiling"
	ClipDiminishingReturn = "diminishing_returns"
)

// DayFormat is the canonical day key used by streaks and rollover.
const DayFormat = "2006-01-02"

// StreakMilestones trigger a notification event when a habit streak
// reaches them.
var StreakMilestones = []int{7, 14, 30, 50, 100}

// Regulator enforces the anti-burnout rules: forgiveness, streak bonus
// saturation, same-day diminishing returns and the daily XP ceiling.
type Regulator struct {
	cfg Config
}

func NewRegulator(cfg Config) *Regulator {
	return &Regulator{cfg: cfg}
}

// StreakMultiplier returns the XP multiplier for a habit at the given
// consecutive count. Growth is a saturating exponential, flat beyond the
// configured cap so long streaks stop compounding.
func (r *Regulator) StreakMultiplier(consecutive int) float64 {
	if consecutive < 0 {
		consecutive = 0
	}
	if consecutive > r.cfg.StreakCapDays {
		consecutive = r.cfg.StreakCapDays
	}
	return 1 + r.cfg.StreakBonusRate*(1-math.Pow(r.cfg.StreakBonusDecay, float64(consecutive)))
}

// RepeatFactor returns the XP factor for the (repeats+1)-th completion of
// the same template within one day. Geometric decay with a floor, so XP
// approaches negligible but never zero.
func (r *Regulator) RepeatFactor(repeats int) float64 {
	if repeats <= 0 {
		return 1
	}
	f := math.Pow(r.cfg.RepeatDecay, float64(repeats))
	if f < r.cfg.RepeatFloor {
		f = r.cfg.RepeatFloor
	}
	return f
}

// Clip enforces the rolling-24h daily ceiling. The requested amount is
// always logged by the caller; only the applied amount is clipped to the
// remaining headroom.
func (r *Regulator) Clip(requested, appliedInWindow int) (applied int, reason string) {
	if requested <= 0 {
		return 0, ClipNone
	}
	headroom := r.cfg.DailyXPCeiling - appliedInWindow
	if headroom <= 0 {
		return 0, ClipDailyCeiling
	}
	if requested > headroom {
		return headroom, ClipDailyCeiling
	}
	return requested, ClipNone
}

// RecordCompletion updates streak state for a habit completed on day.
// A second completion on the same day leaves the count alone. Returns
// whether the new count is a milestone.
func (r *Regulator) RecordCompletion(s *storage.StreakState, day string) (milestone bool) {
	if s.WindowStart == "" {
		s.WindowStart = day
		s.TokensRemaining = r.cfg.ForgivenessMisses
	}
	if s.LastCompletedDay == day {
		return false
	}
	s.Consecutive++
	s.LastCompletedDay = day
	for _, m := range StreakMilestones {
		if s.Consecutive == m {
			return true
		}
	}
	return false
}

// RecordMiss updates streak state for a habit period that passed without
// completion. A forgiveness token absorbs the miss; beyond capacity the
// consecutive count resets to zero. Historical XP is never touched.
func (r *Regulator) RecordMiss(s *storage.StreakState, day string) {
	r.refreshWindow(s, day)
	if s.TokensRemaining > 0 {
		s.TokensRemaining--
		return
	}
	s.Consecutive = 0
}

// refreshWindow resets forgiveness tokens when the fixed cadence window
// has elapsed.
func (r *Regulator) refreshWindow(s *storage.StreakState, day string) {
	if s.WindowStart == "" {
		s.WindowStart = day
		s.TokensRemaining = r.cfg.ForgivenessMisses
		return
	}
	start, err := time.Parse(DayFormat, s.WindowStart)
	if err != nil {
		s.WindowStart = day
		s.TokensRemaining = r.cfg.ForgivenessMisses
		return
	}
	cur, err := time.Parse(DayFormat, day)
	if err != nil {
		return
	}
	if int(cur.Sub(start).Hours()/24) >= r.cfg.ForgivenessWindowDays {
		s.WindowStart = day
		s.TokensRemaining = r.cfg.ForgivenessMisses
	}
}
