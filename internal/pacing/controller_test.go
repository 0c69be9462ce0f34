package pacing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
)

// fakeClock is a settable time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// activeTuesday is a weekday morning inside the default active window.
var activeTuesday = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, cfg Config, clock *fakeClock) *Controller {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	return NewController(cfg, path, logger.NewNop(),
		WithClock(clock.Now),
		WithRand(func() float64 { return 0.5 }),
	)
}

func TestPlanAllowedInsideActiveWindow(t *testing.T) {
	clock := &fakeClock{now: activeTuesday}
	c := newTestController(t, Config{}, clock)

	plan := c.Plan()
	require.True(t, plan.Allowed)
	assert.Equal(t, 5, plan.ItemsPerKeyword)
	assert.Equal(t, 1, plan.KeywordsPerBatch)
	assert.Greater(t, plan.NextWait, time.Duration(0))
}

func TestPlanCarriesKeywordDelayRange(t *testing.T) {
	clock := &fakeClock{now: activeTuesday}
	c := newTestController(t, Config{}, clock)

	plan := c.Plan()
	require.True(t, plan.Allowed)
	assert.Equal(t, 90*time.Second, plan.MinKeywordDelay)
	assert.Equal(t, 240*time.Second, plan.MaxKeywordDelay)
}

func TestPlanDeclinesOutsideActiveHours(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)}
	c := newTestController(t, Config{}, clock)

	plan := c.Plan()
	require.False(t, plan.Allowed)
	assert.Equal(t, "outside active hours", plan.Reason)
	assert.Equal(t, 10*time.Hour, plan.NextWait)
}

func TestPlanDeclinesOnWeekend(t *testing.T) {
	// 2026-03-14 is a Saturday.
	clock := &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	c := newTestController(t, Config{}, clock)

	plan := c.Plan()
	require.False(t, plan.Allowed)
	assert.Equal(t, "outside active hours", plan.Reason)
}

func TestRestrictionDemotesFromAnyTier(t *testing.T) {
	clock := &fakeClock{now: activeTuesday}
	cfg := Config{ToModerate: Promotion{ConsecutiveRuns: 1, MinDaysSinceRestriction: 1}}
	c := newTestController(t, cfg, clock)

	// Promote to moderate first.
	c.Report(domain.CycleOutcome{ItemsAccepted: 1})
	require.Equal(t, domain.TierModerate, c.Snapshot().Tier)

	c.Report(domain.CycleOutcome{RestrictionDetected: true})

	st := c.Snapshot()
	assert.Equal(t, domain.TierConservative, st.Tier)
	assert.Zero(t, st.Streak)
	assert.Greater(t, st.Multiplier, 1.0)
	assert.Equal(t, clock.now.Add(6*time.Hour), st.PausedUntil)

	plan := c.Plan()
	require.False(t, plan.Allowed)
	assert.Contains(t, plan.Reason, "paused until")
	assert.Equal(t, 6*time.Hour, plan.NextWait)
}

func TestCaptchaDemotesAndPausesLonger(t *testing.T) {
	clock := &fakeClock{now: activeTuesday}
	cfg := Config{ToModerate: Promotion{ConsecutiveRuns: 1, MinDaysSinceRestriction: 1}}
	c := newTestController(t, cfg, clock)

	c.Report(domain.CycleOutcome{ItemsAccepted: 1})
	require.Equal(t, domain.TierModerate, c.Snapshot().Tier)

	c.Report(domain.CycleOutcome{CaptchaDetected: true})

	st := c.Snapshot()
	assert.Equal(t, domain.TierConservative, st.Tier)
	assert.Equal(t, clock.now.Add(12*time.Hour), st.PausedUntil)

	// Any cycle attempted before paused_until is declined.
	clock.now = clock.now.Add(time.Hour)
	assert.False(t, c.Plan().Allowed)
}

func TestPromotionRequiresStreakAndQuietPeriod(t *testing.T) {
	clock := &fakeClock{now: activeTuesday}
	cfg := Config{ToModerate: Promotion{ConsecutiveRuns: 2, MinDaysSinceRestriction: 3}}
	c := newTestController(t, cfg, clock)

	c.Report(domain.CycleOutcome{ItemsAccepted: 1})
	assert.Equal(t, domain.TierConservative, c.Snapshot().Tier, "one clean run is not enough")

	c.Report(domain.CycleOutcome{ItemsAccepted: 1})
	assert.Equal(t, domain.TierModerate, c.Snapshot().Tier)
	assert.Zero(t, c.Snapshot().Streak, "streak resets on promotion")
}

func TestPromotionBlockedByRecentRestriction(t *testing.T) {
	clock := &fakeClock{now: activeTuesday}
	cfg := Config{ToModerate: Promotion{ConsecutiveRuns: 2, MinDaysSinceRestriction: 3}}
	c := newTestController(t, cfg, clock)

	c.Report(domain.CycleOutcome{RestrictionDetected: true})

	// Clean runs right after a restriction must not promote.
	clock.now = clock.now.Add(24 * time.Hour)
	for i := 0; i < 5; i++ {
		c.Report(domain.CycleOutcome{ItemsAccepted: 1})
	}
	assert.Equal(t, domain.TierConservative, c.Snapshot().Tier)

	// After the quiet period the accumulated streak promotes.
	clock.now = clock.now.Add(4 * 24 * time.Hour)
	c.Report(domain.CycleOutcome{ItemsAccepted: 1})
	assert.Equal(t, domain.TierModerate, c.Snapshot().Tier)
}

func TestHardCapStopsCyclesUntilRollover(t *testing.T) {
	clock := &fakeClock{now: activeTuesday}
	cfg := Config{Quota: Quota{SoftTarget: 1, HardCap: 2}}
	c := newTestController(t, cfg, clock)

	c.Report(domain.CycleOutcome{ItemsAccepted: 2})

	plan := c.Plan()
	require.False(t, plan.Allowed)
	assert.Equal(t, "daily hard cap reached", plan.Reason)
	assert.Equal(t, 14*time.Hour, plan.NextWait, "waits until local midnight")

	// Next day the counter resets and cycles resume.
	clock.now = clock.now.Add(24 * time.Hour)
	plan = c.Plan()
	assert.True(t, plan.Allowed)
	assert.Zero(t, c.Snapshot().AcceptedToday)
}

func TestPinTier(t *testing.T) {
	clock := &fakeClock{now: activeTuesday}
	c := newTestController(t, Config{}, clock)

	require.NoError(t, c.PinTier(domain.TierAggressive))

	plan := c.Plan()
	assert.Equal(t, 20, plan.ItemsPerKeyword, "aggressive limits apply while pinned")

	// Clean runs while pinned never move the automatic tier.
	for i := 0; i < 20; i++ {
		c.Report(domain.CycleOutcome{ItemsAccepted: 1})
	}
	assert.Equal(t, domain.TierConservative, c.Snapshot().Tier)

	c.Unpin()
	plan = c.Plan()
	assert.Equal(t, 5, plan.ItemsPerKeyword)

	assert.Error(t, c.PinTier(domain.Tier("turbo")))
}

func TestCorruptStateFailsSafeToConservative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	clock := &fakeClock{now: activeTuesday}
	c := NewController(Config{}, path, logger.NewNop(), WithClock(clock.Now))

	st := c.Snapshot()
	assert.Equal(t, domain.TierConservative, st.Tier)
	assert.Equal(t, 1.0, st.Multiplier)
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st := State{
		Tier:          domain.TierModerate,
		Multiplier:    1.3,
		Streak:        4,
		QuotaDate:     "2026-03-10",
		AcceptedToday: 7,
	}
	require.NoError(t, saveState(path, st))

	loaded, err := loadState(path, activeTuesday)
	require.NoError(t, err)
	assert.Equal(t, st, loaded)
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(domain.TierConservative, domain.TierModerate))
	assert.NoError(t, ValidateTransition(domain.TierModerate, domain.TierAggressive))
	assert.NoError(t, ValidateTransition(domain.TierModerate, domain.TierConservative))
	assert.NoError(t, ValidateTransition(domain.TierAggressive, domain.TierConservative))

	assert.Error(t, ValidateTransition(domain.TierConservative, domain.TierAggressive), "no tier skipping")
	assert.Error(t, ValidateTransition(domain.TierAggressive, domain.TierModerate))
	assert.Error(t, ValidateTransition(domain.Tier("turbo"), domain.TierModerate))
}

func TestMidnightActiveStartIsHonored(t *testing.T) {
	start := 0
	cfg := Config{Quota: Quota{ActiveStartHour: &start}}

	// Tuesday 02:00, well before the default opening hour.
	clock := &fakeClock{now: time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)}
	c := newTestController(t, cfg, clock)

	assert.True(t, c.Plan().Allowed, "a window opening at midnight is a valid configuration")
}

func TestZeroLongBreakProbDisablesLongBreaks(t *testing.T) {
	disabled := 0.0
	cfg := Config{Quota: Quota{LongBreakProb: &disabled}}
	cfg.SetDefaults()
	require.Zero(t, *cfg.Quota.LongBreakProb, "explicit zero survives the defaults pass")

	withBreaks := Config{}
	withBreaks.SetDefaults()
	always := 1.0
	withBreaks.Quota.LongBreakProb = &always

	// Near the cap with a rand source that always triggers the break.
	nearCap := State{Multiplier: 1.0, AcceptedToday: cfg.Quota.HardCap}
	randFn := func() float64 { return 0.5 }

	plain := computeWait(cfg, nearCap, activeTuesday, randFn)
	extended := computeWait(withBreaks, nearCap, activeTuesday, randFn)
	assert.Greater(t, extended, plain, "only the enabled configuration inserts a long break")
}

func TestComputeWaitShapesInterval(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	noJitter := func() float64 { return 0.5 }

	st := State{Multiplier: 1.0}

	morning := computeWait(cfg, st, activeTuesday, noJitter)
	evening := computeWait(cfg, st, time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC), noJitter)
	assert.Greater(t, evening, morning, "evenings slow down")

	sunday := computeWait(cfg, st, time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC), noJitter)
	assert.Greater(t, sunday, morning, "weekends slow down")

	unhealthy := State{Multiplier: 4.0}
	assert.Greater(t, computeWait(cfg, unhealthy, activeTuesday, noJitter), morning)

	nearCap := State{Multiplier: 1.0, AcceptedToday: cfg.Quota.HardCap}
	assert.Greater(t, computeWait(cfg, nearCap, activeTuesday, noJitter), morning)

	// The floor holds even with a tiny base interval.
	tiny := cfg
	tiny.BaseInterval = time.Second
	assert.GreaterOrEqual(t, computeWait(tiny, st, activeTuesday, noJitter), 2*time.Minute)
}
