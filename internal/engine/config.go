package engine

// Config holds every tunable of the XP economy. Components receive it
// explicitly at construction; there are no package-level knobs.
type Config struct {
	// Daily ceiling: hard cap on XP applied across all skills in a
	// rolling 24h window. Awards beyond it are logged but clipped.
	DailyXPCeiling int `yaml:"daily_xp_ceiling"`

	// Forgiveness: misses tolerated per rolling window before a habit
	// streak resets.
	ForgivenessMisses     int `yaml:"forgiveness_misses"`
	ForgivenessWindowDays int `yaml:"forgiveness_window_days"`

	// Streak bonus saturates at the cap; growth below it is sub-linear.
	StreakCapDays    int     `yaml:"streak_cap_days"`
	StreakBonusRate  float64 `yaml:"streak_bonus_rate"`
	StreakBonusDecay float64 `yaml:"streak_bonus_decay"`

	// Same-day repeat completions of one template decay geometrically,
	// never below the floor factor.
	RepeatDecay float64 `yaml:"repeat_decay"`
	RepeatFloor float64 `yaml:"repeat_floor"`

	// Rest-day credit.
	RestDayXP    int    `yaml:"rest_day_xp"`
	RestDaySkill string `yaml:"rest_day_skill"`

	// Partial ("good-enough") completions are capped below full credit.
	PartialCreditCap float64 `yaml:"partial_credit_cap"`

	// Historical multiplier cold-start and clamping.
	HistoryMinSamples int     `yaml:"history_min_samples"`
	MultiplierMin     float64 `yaml:"multiplier_min"`
	MultiplierMax     float64 `yaml:"multiplier_max"`

	Weights SchedulerWeights `yaml:"scheduler_weights"`
}

// SchedulerWeights are the priority score coefficients.
type SchedulerWeights struct {
	TimeSensitivity float64 `yaml:"time_sensitivity"`
	XPValue         float64 `yaml:"xp_value"`
	StreakRisk      float64 `yaml:"streak_risk"`
	DomainBalance   float64 `yaml:"domain_balance"`
}

func DefaultConfig() Config {
	return Config{
		DailyXPCeiling:        1200,
		ForgivenessMisses:     1,
		ForgivenessWindowDays: 7,
		StreakCapDays:         14,
		StreakBonusRate:       0.5,
		StreakBonusDecay:      0.85,
		RepeatDecay:           0.5,
		RepeatFloor:           0.05,
		RestDayXP:             25,
		RestDaySkill:          "Recovery",
		PartialCreditCap:      0.8,
		HistoryMinSamples:     3,
		MultiplierMin:         0.5,
		MultiplierMax:         2.0,
		Weights: SchedulerWeights{
			TimeSensitivity: 0.4,
			XPValue:         0.2,
			StreakRisk:      0.3,
			DomainBalance:   0.1,
		},
	}
}
