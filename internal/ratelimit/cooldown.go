package ratelimit

import (
	"math/rand"
	"sync"
	"time"

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
)

// Risk cooldown defaults.
const (
	DefaultAuthThreshold  = 3
	DefaultEmptyThreshold = 4
	DefaultCooldownMin    = 30 * time.Minute
	DefaultCooldownMax    = 90 * time.Minute
)

// CooldownConfig tunes the risk-cooldown circuit breaker.
type CooldownConfig struct {
	AuthThreshold  int           `mapstructure:"auth_threshold"  yaml:"auth_threshold"`
	EmptyThreshold int           `mapstructure:"empty_threshold" yaml:"empty_threshold"`
	MinSleep       time.Duration `mapstructure:"min_sleep"       yaml:"min_sleep"`
	MaxSleep       time.Duration `mapstructure:"max_sleep"       yaml:"max_sleep"`
}

// SetDefaults applies default values to unset fields.
func (c *CooldownConfig) SetDefaults() {
	if c.AuthThreshold <= 0 {
		c.AuthThreshold = DefaultAuthThreshold
	}
	if c.EmptyThreshold <= 0 {
		c.EmptyThreshold = DefaultEmptyThreshold
	}
	if c.MinSleep <= 0 {
		c.MinSleep = DefaultCooldownMin
	}
	if c.MaxSleep <= c.MinSleep {
		c.MaxSleep = c.MinSleep + DefaultCooldownMax - DefaultCooldownMin
	}
}

// RiskMonitor is a cheap circuit breaker layered in front of the pacing
// controller: two counters climb on bad cycles, decay by one on good ones,
// and crossing either threshold forces one long randomized sleep before the
// next cycle is even attempted.
type RiskMonitor struct {
	mu         sync.Mutex
	cfg        CooldownConfig
	authSus    int
	emptyRuns  int
	randSource func() float64
	logger     logger.Logger
}

// NewRiskMonitor creates a monitor with the given thresholds.
func NewRiskMonitor(cfg CooldownConfig, log logger.Logger) *RiskMonitor {
	cfg.SetDefaults()
	return &RiskMonitor{cfg: cfg, randSource: rand.Float64, logger: log}
}

// Record feeds one cycle outcome into the counters.
func (m *RiskMonitor) Record(outcome domain.CycleOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if outcome.Failed() {
		m.authSus++
	} else if m.authSus > 0 {
		m.authSus--
	}

	if outcome.EmptyKeywords > 0 && outcome.ItemsAccepted == 0 {
		m.emptyRuns++
	} else if m.emptyRuns > 0 {
		m.emptyRuns--
	}
}

// Cooldown reports whether a long randomized sleep is required before the
// next cycle, and resets the offending counter when it fires so the breaker
// trips once per excursion.
func (m *RiskMonitor) Cooldown() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tripped := false
	if m.authSus >= m.cfg.AuthThreshold {
		m.authSus = 0
		tripped = true
	}
	if m.emptyRuns >= m.cfg.EmptyThreshold {
		m.emptyRuns = 0
		tripped = true
	}
	if !tripped {
		return 0, false
	}

	span := m.cfg.MaxSleep - m.cfg.MinSleep
	sleep := m.cfg.MinSleep + time.Duration(m.randSource()*float64(span))
	m.logger.Warn("risk cooldown tripped",
		logger.Duration("sleep", sleep),
	)
	return sleep, true
}

// Counters returns the current counter values for the status endpoint.
func (m *RiskMonitor) Counters() (authSuspect, emptyRuns int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authSus, m.emptyRuns
}
