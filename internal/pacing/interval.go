package pacing

import "time"

// Interval shaping factors. The absolute values matter less than the
// ordering: mornings are busy, evenings slow down, nights nearly stop, and
// weekends look like casual browsing rather than office hours.
const (
	quotaCatchUpFactor  = 0.8
	quotaMetFactor      = 1.6
	quotaNearCapFactor  = 3.0
	nearCapFraction     = 0.8
	minComputedInterval = 2 * time.Minute
)

// timeOfDayFactor shapes the interval across the day.
func timeOfDayFactor(hour int) float64 {
	switch {
	case hour >= 9 && hour < 12:
		return 0.9
	case hour >= 12 && hour < 14:
		return 1.2
	case hour >= 14 && hour < 18:
		return 1.0
	case hour >= 18 && hour < 22:
		return 1.5
	default:
		return 2.5
	}
}

// dayOfWeekFactor slows weekends down.
func dayOfWeekFactor(day time.Weekday) float64 {
	switch day {
	case time.Saturday:
		return 1.6
	case time.Sunday:
		return 2.0
	default:
		return 1.0
	}
}

// quotaFactor biases the interval by daily progress: catch-up below the
// soft target, lengthening once it is met, sharp cooldown near the cap.
func quotaFactor(accepted int, q Quota) float64 {
	switch {
	case accepted >= int(float64(q.HardCap)*nearCapFraction):
		return quotaNearCapFactor
	case accepted >= q.SoftTarget:
		return quotaMetFactor
	default:
		return quotaCatchUpFactor
	}
}

// computeWait derives the next inter-cycle wait:
// base × time-of-day × day-of-week × health × quota bias × jitter.
// randFn supplies the jitter source so tests stay deterministic.
func computeWait(cfg Config, st State, now time.Time, randFn func() float64) time.Duration {
	wait := float64(cfg.BaseInterval)
	wait *= timeOfDayFactor(now.Hour())
	wait *= dayOfWeekFactor(now.Weekday())
	wait *= st.Multiplier
	wait *= quotaFactor(st.AcceptedToday, cfg.Quota)

	// Bounded randomness so the cadence is never perfectly periodic.
	jitter := 1 + (randFn()*2-1)*cfg.JitterFraction
	wait *= jitter

	d := time.Duration(wait)
	if d < minComputedInterval {
		d = minComputedInterval
	}

	// Near the cap, occasionally insert a long break on top of the
	// lengthened wait.
	if st.AcceptedToday >= int(float64(cfg.Quota.HardCap)*nearCapFraction) &&
		randFn() < *cfg.Quota.LongBreakProb {
		span := cfg.Quota.LongBreakMax - cfg.Quota.LongBreakMin
		d += cfg.Quota.LongBreakMin + time.Duration(randFn()*float64(span))
	}

	return d
}

// nextActiveStart returns the next instant the active window opens at or
// after now.
func nextActiveStart(q Quota, now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), *q.ActiveStartHour, 0, 0, 0, now.Location())
	for i := 0; i < 8; i++ {
		candidate := day.AddDate(0, 0, i)
		if q.activeOn(candidate.Weekday()) && candidate.After(now) {
			return candidate
		}
	}
	// Degenerate configuration (no active weekdays); retry in a day.
	return now.Add(24 * time.Hour)
}

// withinActiveWindow reports whether now falls inside the configured
// active hours and weekdays.
func withinActiveWindow(q Quota, now time.Time) bool {
	if !q.activeOn(now.Weekday()) {
		return false
	}
	return now.Hour() >= *q.ActiveStartHour && now.Hour() < q.ActiveEndHour
}
