package pacing

import (
	"fmt"

	"github.com/SergeOin/titan/internal/domain"
)

// validTransitions encodes the tier state machine. Promotion climbs one
// step at a time; demotion to Conservative is allowed from anywhere and is
// the mandatory response to any restriction signal.
var validTransitions = map[domain.Tier][]domain.Tier{
	domain.TierConservative: {domain.TierModerate},
	domain.TierModerate:     {domain.TierAggressive, domain.TierConservative},
	domain.TierAggressive:   {domain.TierConservative},
}

// ValidateTransition checks whether moving between two tiers is allowed.
func ValidateTransition(from, to domain.Tier) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown tier: %s", from)
	}
	for _, t := range allowed {
		if t == to {
			return nil
		}
	}
	return fmt.Errorf("invalid tier transition from %s to %s", from, to)
}

// errInvalidTier reports an unknown tier name, e.g. from the API.
func errInvalidTier(t domain.Tier) error {
	return fmt.Errorf("unknown tier: %q", t)
}

// nextTier returns the tier one promotion step above the given one.
// Aggressive has no next step.
func nextTier(t domain.Tier) (domain.Tier, bool) {
	switch t {
	case domain.TierConservative:
		return domain.TierModerate, true
	case domain.TierModerate:
		return domain.TierAggressive, true
	default:
		return t, false
	}
}

// promotionFor returns the thresholds guarding the promotion out of a tier.
func (c Config) promotionFor(t domain.Tier) (Promotion, bool) {
	switch t {
	case domain.TierConservative:
		return c.ToModerate, true
	case domain.TierModerate:
		return c.ToAggressive, true
	default:
		return Promotion{}, false
	}
}

// limitsFor returns the limits tuple for a tier, falling back to the
// built-in table when the configured one misses an entry.
func (c Config) limitsFor(t domain.Tier) TierLimits {
	if limits, ok := c.Tiers[t]; ok {
		return limits
	}
	return DefaultTiers()[t]
}
