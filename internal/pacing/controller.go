package pacing

import (
	"math/rand"
	"sync"
	"time"

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
)

// Controller owns the pacing state and produces one CyclePlan per cycle.
// It is an explicitly-constructed instance with an injected state path and
// clock; nothing here is global, so tests can run several controllers side
// by side.
type Controller struct {
	mu     sync.Mutex
	cfg    Config
	state  State
	path   string
	now    func() time.Time
	randFn func() float64
	logger logger.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithRand injects the jitter source.
func WithRand(randFn func() float64) Option {
	return func(c *Controller) { c.randFn = randFn }
}

// NewController loads (or safely defaults) the persisted state and returns
// a ready controller.
func NewController(cfg Config, statePath string, log logger.Logger, opts ...Option) *Controller {
	cfg.SetDefaults()

	c := &Controller{
		cfg:    cfg,
		path:   statePath,
		now:    time.Now,
		randFn: rand.Float64,
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}

	st, err := loadState(statePath, c.now())
	if err != nil {
		log.Warn("pacing state unreadable, starting conservative", logger.Error(err))
	}
	c.state = st

	log.Info("pacing controller ready",
		logger.String("tier", string(c.effectiveTier())),
		logger.Int("accepted_today", st.AcceptedToday),
	)
	return c
}

// Plan decides whether the next cycle may run, how many items to request
// and how long to wait before the cycle after it.
func (c *Controller) Plan() domain.CyclePlan {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.rolloverLocked(now)

	limits := c.cfg.limitsFor(c.effectiveTier())
	wait := computeWait(c.cfg, c.state, now, c.randFn)

	plan := domain.CyclePlan{
		ItemsPerKeyword:  limits.ItemsPerKeyword,
		KeywordsPerBatch: limits.KeywordsPerBatch,
		MinKeywordDelay:  limits.MinKeywordDelay,
		MaxKeywordDelay:  limits.MaxKeywordDelay,
		NextWait:         wait,
	}

	// Hard pause overrides everything, including an otherwise healthy tier.
	if now.Before(c.state.PausedUntil) {
		plan.Allowed = false
		plan.Reason = "paused until " + c.state.PausedUntil.Format(time.RFC3339)
		plan.NextWait = c.state.PausedUntil.Sub(now)
		return plan
	}

	if !withinActiveWindow(c.cfg.Quota, now) {
		plan.Allowed = false
		plan.Reason = "outside active hours"
		plan.NextWait = nextActiveStart(c.cfg.Quota, now).Sub(now)
		return plan
	}

	if c.state.AcceptedToday >= c.cfg.Quota.HardCap {
		plan.Allowed = false
		plan.Reason = "daily hard cap reached"
		plan.NextWait = c.untilNextRolloverLocked(now)
		return plan
	}

	plan.Allowed = true
	return plan
}

// Report feeds one cycle outcome back into the controller, closing the
// pace → extract → classify → persist → outcome loop.
func (c *Controller) Report(outcome domain.CycleOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.rolloverLocked(now)
	c.state.AcceptedToday += outcome.ItemsAccepted

	if outcome.Failed() {
		c.demoteLocked(now, outcome.CaptchaDetected)
	} else {
		c.recordSuccessLocked(now)
	}

	if err := saveState(c.path, c.state); err != nil {
		c.logger.Warn("pacing state not persisted", logger.Error(err))
	}
}

// demoteLocked is the mandatory reaction to any restriction or CAPTCHA
// signal: Conservative tier, zero streak, grown multiplier, hard pause.
func (c *Controller) demoteLocked(now time.Time, captcha bool) {
	previous := c.state.Tier
	c.state.Tier = domain.TierConservative
	c.state.Streak = 0
	c.state.LastRestriction = now

	c.state.Multiplier *= c.cfg.HealthGrowth
	if c.state.Multiplier > c.cfg.HealthMax {
		c.state.Multiplier = c.cfg.HealthMax
	}

	pause := c.cfg.RestrictionPause
	if captcha {
		pause = c.cfg.CaptchaPause
	}
	c.state.PausedUntil = now.Add(pause)

	c.logger.Warn("restriction signal, demoting to conservative",
		logger.String("previous_tier", string(previous)),
		logger.Bool("captcha", captcha),
		logger.Time("paused_until", c.state.PausedUntil),
	)
}

// recordSuccessLocked advances the streak, decays the health multiplier
// and promotes one tier when the thresholds are met.
func (c *Controller) recordSuccessLocked(now time.Time) {
	c.state.Streak++

	c.state.Multiplier *= c.cfg.HealthDecay
	if c.state.Multiplier < c.cfg.HealthMin {
		c.state.Multiplier = c.cfg.HealthMin
	}

	if c.state.ManualTier != "" {
		return // pinned: no automatic transitions
	}

	promo, ok := c.cfg.promotionFor(c.state.Tier)
	if !ok {
		return
	}
	if c.state.Streak < promo.ConsecutiveRuns {
		return
	}
	if !c.state.LastRestriction.IsZero() {
		quiet := now.Sub(c.state.LastRestriction)
		if quiet < time.Duration(promo.MinDaysSinceRestriction)*24*time.Hour {
			return
		}
	}

	next, ok := nextTier(c.state.Tier)
	if !ok {
		return
	}
	if err := ValidateTransition(c.state.Tier, next); err != nil {
		c.logger.Error("tier promotion rejected", logger.Error(err))
		return
	}

	c.logger.Info("tier promoted",
		logger.String("from", string(c.state.Tier)),
		logger.String("to", string(next)),
		logger.Int("streak", c.state.Streak),
	)
	c.state.Tier = next
	c.state.Streak = 0
}

// PinTier pins the tier manually, bypassing automatic transitions until
// Unpin is called. A restriction signal still forces Conservative behavior
// through the pause, but the pinned tier is restored afterwards.
func (c *Controller) PinTier(t domain.Tier) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !validTier(t) {
		return errInvalidTier(t)
	}
	c.state.ManualTier = t
	return saveState(c.path, c.state)
}

// Unpin clears a manual tier pin.
func (c *Controller) Unpin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ManualTier = ""
	if err := saveState(c.path, c.state); err != nil {
		c.logger.Warn("pacing state not persisted", logger.Error(err))
	}
}

// effectiveTier resolves the manual pin against the automatic tier.
func (c *Controller) effectiveTier() domain.Tier {
	if c.state.ManualTier != "" {
		return c.state.ManualTier
	}
	return c.state.Tier
}

// RolloverDay resets the daily counters when the local day changes. Called
// lazily from Plan/Report and eagerly from the midnight cron job.
func (c *Controller) RolloverDay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked(c.now())
}

func (c *Controller) rolloverLocked(now time.Time) {
	today := now.Format("2006-01-02")
	if c.state.QuotaDate == today {
		return
	}
	c.logger.Info("daily quota reset",
		logger.String("previous_day", c.state.QuotaDate),
		logger.Int("accepted", c.state.AcceptedToday),
	)
	c.state.QuotaDate = today
	c.state.AcceptedToday = 0
	if err := saveState(c.path, c.state); err != nil {
		c.logger.Warn("pacing state not persisted", logger.Error(err))
	}
}

// untilNextRolloverLocked returns the wait until local midnight.
func (c *Controller) untilNextRolloverLocked(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return midnight.Sub(now)
}

// Status is a read-only snapshot for the health endpoint.
type Status struct {
	Tier            domain.Tier `json:"tier"`
	ManualTier      domain.Tier `json:"manual_tier,omitempty"`
	Multiplier      float64     `json:"multiplier"`
	Streak          int         `json:"streak"`
	LastRestriction time.Time   `json:"last_restriction,omitempty"`
	PausedUntil     time.Time   `json:"paused_until,omitempty"`
	AcceptedToday   int         `json:"accepted_today"`
	SoftTarget      int         `json:"soft_target"`
	HardCap         int         `json:"hard_cap"`
}

// Snapshot returns the current pacing status.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Tier:            c.state.Tier,
		ManualTier:      c.state.ManualTier,
		Multiplier:      c.state.Multiplier,
		Streak:          c.state.Streak,
		LastRestriction: c.state.LastRestriction,
		PausedUntil:     c.state.PausedUntil,
		AcceptedToday:   c.state.AcceptedToday,
		SoftTarget:      c.cfg.Quota.SoftTarget,
		HardCap:         c.cfg.Quota.HardCap,
	}
}
