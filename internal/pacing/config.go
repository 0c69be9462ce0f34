// Package pacing decides when and how aggressively each scrape cycle runs,
// reacting to the pipeline's own success and failure history.
package pacing

import (
	"time"

	"github.com/SergeOin/titan/internal/domain"
)

// Default pacing values. None of these are authoritative; everything is
// configurable.
const (
	defaultBaseInterval     = 45 * time.Minute
	defaultJitterFraction   = 0.25
	defaultHealthGrowth     = 1.8
	defaultHealthDecay      = 0.85
	defaultHealthMin        = 0.5
	defaultHealthMax        = 8.0
	defaultRestrictionPause = 6 * time.Hour
	defaultCaptchaPause     = 12 * time.Hour
	defaultSoftTarget       = 15
	defaultHardCap          = 40
	defaultActiveStartHour  = 8
	defaultActiveEndHour    = 20
	defaultLongBreakProb    = 0.15
	defaultLongBreakMin     = 1 * time.Hour
	defaultLongBreakMax     = 3 * time.Hour
	defaultToModerateRuns   = 5
	defaultToModerateDays   = 3
	defaultToAggressiveRuns = 10
	defaultToAggressiveDays = 7
)

// TierLimits is the fixed limits tuple a tier carries.
type TierLimits struct {
	ItemsPerKeyword  int           `mapstructure:"items_per_keyword"  yaml:"items_per_keyword"`
	KeywordsPerBatch int           `mapstructure:"keywords_per_batch" yaml:"keywords_per_batch"`
	MinKeywordDelay  time.Duration `mapstructure:"min_keyword_delay"  yaml:"min_keyword_delay"`
	MaxKeywordDelay  time.Duration `mapstructure:"max_keyword_delay"  yaml:"max_keyword_delay"`
}

// Promotion holds the thresholds for one tier promotion step.
type Promotion struct {
	// ConsecutiveRuns is the number of consecutive clean cycles required.
	ConsecutiveRuns int `mapstructure:"consecutive_runs" yaml:"consecutive_runs"`
	// MinDaysSinceRestriction is the minimum elapsed days since the last
	// detected restriction.
	MinDaysSinceRestriction int `mapstructure:"min_days_since_restriction" yaml:"min_days_since_restriction"`
}

// Quota holds the daily accepted-post pacing plan. ActiveStartHour and
// LongBreakProb are pointers so that zero (a window opening at midnight,
// long breaks disabled) stays distinguishable from unset.
type Quota struct {
	SoftTarget      int      `mapstructure:"soft_target"       yaml:"soft_target"`
	HardCap         int      `mapstructure:"hard_cap"          yaml:"hard_cap"`
	ActiveStartHour *int     `mapstructure:"active_start_hour" yaml:"active_start_hour"`
	ActiveEndHour   int      `mapstructure:"active_end_hour"   yaml:"active_end_hour"`
	ActiveWeekdays  []int    `mapstructure:"active_weekdays"   yaml:"active_weekdays"`
	LongBreakProb   *float64 `mapstructure:"long_break_prob"   yaml:"long_break_prob"`

	LongBreakMin time.Duration `mapstructure:"long_break_min" yaml:"long_break_min"`
	LongBreakMax time.Duration `mapstructure:"long_break_max" yaml:"long_break_max"`
}

// Config holds the full pacing configuration.
type Config struct {
	BaseInterval   time.Duration `mapstructure:"base_interval"   yaml:"base_interval"`
	JitterFraction float64       `mapstructure:"jitter_fraction" yaml:"jitter_fraction"`

	HealthGrowth float64 `mapstructure:"health_growth" yaml:"health_growth"`
	HealthDecay  float64 `mapstructure:"health_decay"  yaml:"health_decay"`
	HealthMin    float64 `mapstructure:"health_min"    yaml:"health_min"`
	HealthMax    float64 `mapstructure:"health_max"    yaml:"health_max"`

	RestrictionPause time.Duration `mapstructure:"restriction_pause" yaml:"restriction_pause"`
	CaptchaPause     time.Duration `mapstructure:"captcha_pause"     yaml:"captcha_pause"`

	Tiers        map[domain.Tier]TierLimits `mapstructure:"tiers"         yaml:"tiers"`
	ToModerate   Promotion                  `mapstructure:"to_moderate"   yaml:"to_moderate"`
	ToAggressive Promotion                  `mapstructure:"to_aggressive" yaml:"to_aggressive"`

	Quota Quota `mapstructure:"quota" yaml:"quota"`
}

// DefaultTiers returns the built-in per-tier limits table.
func DefaultTiers() map[domain.Tier]TierLimits {
	return map[domain.Tier]TierLimits{
		domain.TierConservative: {
			ItemsPerKeyword:  5,
			KeywordsPerBatch: 1,
			MinKeywordDelay:  90 * time.Second,
			MaxKeywordDelay:  240 * time.Second,
		},
		domain.TierModerate: {
			ItemsPerKeyword:  10,
			KeywordsPerBatch: 2,
			MinKeywordDelay:  45 * time.Second,
			MaxKeywordDelay:  150 * time.Second,
		},
		domain.TierAggressive: {
			ItemsPerKeyword:  20,
			KeywordsPerBatch: 3,
			MinKeywordDelay:  20 * time.Second,
			MaxKeywordDelay:  90 * time.Second,
		},
	}
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.BaseInterval <= 0 {
		c.BaseInterval = defaultBaseInterval
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = defaultJitterFraction
	}
	if c.HealthGrowth <= 1 {
		c.HealthGrowth = defaultHealthGrowth
	}
	if c.HealthDecay <= 0 || c.HealthDecay >= 1 {
		c.HealthDecay = defaultHealthDecay
	}
	if c.HealthMin <= 0 {
		c.HealthMin = defaultHealthMin
	}
	if c.HealthMax <= c.HealthMin {
		c.HealthMax = defaultHealthMax
	}
	if c.RestrictionPause <= 0 {
		c.RestrictionPause = defaultRestrictionPause
	}
	if c.CaptchaPause <= 0 {
		c.CaptchaPause = defaultCaptchaPause
	}
	if len(c.Tiers) == 0 {
		c.Tiers = DefaultTiers()
	}
	if c.ToModerate.ConsecutiveRuns <= 0 {
		c.ToModerate.ConsecutiveRuns = defaultToModerateRuns
	}
	if c.ToModerate.MinDaysSinceRestriction <= 0 {
		c.ToModerate.MinDaysSinceRestriction = defaultToModerateDays
	}
	if c.ToAggressive.ConsecutiveRuns <= 0 {
		c.ToAggressive.ConsecutiveRuns = defaultToAggressiveRuns
	}
	if c.ToAggressive.MinDaysSinceRestriction <= 0 {
		c.ToAggressive.MinDaysSinceRestriction = defaultToAggressiveDays
	}
	c.Quota.setDefaults()
}

func (q *Quota) setDefaults() {
	if q.SoftTarget <= 0 {
		q.SoftTarget = defaultSoftTarget
	}
	if q.HardCap <= q.SoftTarget {
		q.HardCap = defaultHardCap
		if q.HardCap <= q.SoftTarget {
			q.HardCap = q.SoftTarget * 2
		}
	}
	if q.ActiveStartHour == nil || *q.ActiveStartHour < 0 || *q.ActiveStartHour > 23 {
		start := defaultActiveStartHour
		q.ActiveStartHour = &start
	}
	if q.ActiveEndHour <= *q.ActiveStartHour {
		q.ActiveEndHour = defaultActiveEndHour
		if q.ActiveEndHour <= *q.ActiveStartHour {
			q.ActiveEndHour = 24
		}
	}
	if len(q.ActiveWeekdays) == 0 {
		// Monday through Friday.
		q.ActiveWeekdays = []int{1, 2, 3, 4, 5}
	}
	if q.LongBreakProb == nil || *q.LongBreakProb < 0 || *q.LongBreakProb > 1 {
		prob := defaultLongBreakProb
		q.LongBreakProb = &prob
	}
	if q.LongBreakMin <= 0 {
		q.LongBreakMin = defaultLongBreakMin
	}
	if q.LongBreakMax <= q.LongBreakMin {
		q.LongBreakMax = defaultLongBreakMax
	}
}

// activeOn reports whether the weekday is inside the active window.
func (q Quota) activeOn(day time.Weekday) bool {
	for _, d := range q.ActiveWeekdays {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}
