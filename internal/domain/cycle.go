package domain

import "time"

// Tier is one of the three discrete pacing aggressiveness levels.
type Tier string

const (
	TierConservative Tier = "conservative"
	TierModerate     Tier = "moderate"
	TierAggressive   Tier = "aggressive"
)

// CyclePlan is the pacing controller's decision for one cycle: whether to
// scrape at all, how hard, and how long to wait before the next attempt.
type CyclePlan struct {
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason,omitempty"`
	ItemsPerKeyword  int    `json:"items_per_keyword"`
	KeywordsPerBatch int    `json:"keywords_per_batch"`
	// MinKeywordDelay and MaxKeywordDelay bound the randomized pause
	// between keyword fetches within the cycle.
	MinKeywordDelay time.Duration `json:"min_keyword_delay"`
	MaxKeywordDelay time.Duration `json:"max_keyword_delay"`
	NextWait        time.Duration `json:"next_wait"`
}

// CycleOutcome is what the pipeline reports back to the pacing controller
// after a cycle, closing the feedback loop.
type CycleOutcome struct {
	ItemsAccepted       int  `json:"items_accepted"`
	EmptyKeywords       int  `json:"empty_keywords"`
	RestrictionDetected bool `json:"restriction_detected"`
	CaptchaDetected     bool `json:"captcha_detected"`
}

// Failed reports whether the cycle carried an anti-automation signal.
func (o CycleOutcome) Failed() bool {
	return o.RestrictionDetected || o.CaptchaDetected
}
