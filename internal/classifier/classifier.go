// Package classifier decides whether a candidate post is a relevant
// legal-recruitment offer. Classification is a pure function of the text,
// the publish date and the configuration: no I/O, no randomness, no clock
// beyond the supplied now, so re-running a backfill is always safe.
package classifier

import (
	"time"

	"github.com/SergeOin/titan/internal/domain"
)

// Default thresholds.
const (
	DefaultMaxPostAge      = 21 * 24 * time.Hour
	DefaultMinLegalScore   = 0.3
	DefaultMinRecruitScore = 0.3

	// maxFutureSkew is how far ahead of the local clock a publish date may
	// sit before it is treated as bogus rather than as clock drift.
	maxFutureSkew = time.Hour
)

// Toggles enables or disables each exclusion rule independently.
type Toggles struct {
	Internship      bool `mapstructure:"internship"       yaml:"internship"`
	Freelance       bool `mapstructure:"freelance"        yaml:"freelance"`
	JobSeeker       bool `mapstructure:"job_seeker"       yaml:"job_seeker"`
	Promotional     bool `mapstructure:"promotional"      yaml:"promotional"`
	Agency          bool `mapstructure:"agency"           yaml:"agency"`
	ForeignLocation bool `mapstructure:"foreign_location" yaml:"foreign_location"`
}

// AllToggles returns the default configuration with every rule enabled.
func AllToggles() Toggles {
	return Toggles{
		Internship:      true,
		Freelance:       true,
		JobSeeker:       true,
		Promotional:     true,
		Agency:          true,
		ForeignLocation: true,
	}
}

// Config holds the classifier thresholds and rule toggles.
type Config struct {
	// MaxPostAge is the hard freshness requirement. A missing publish date
	// is disqualifying, not neutral.
	MaxPostAge      time.Duration `mapstructure:"max_post_age"      yaml:"max_post_age"`
	MinLegalScore   float64       `mapstructure:"min_legal_score"   yaml:"min_legal_score"`
	MinRecruitScore float64       `mapstructure:"min_recruit_score" yaml:"min_recruit_score"`
	Exclusions      Toggles       `mapstructure:"exclusions"        yaml:"exclusions"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.MaxPostAge == 0 {
		c.MaxPostAge = DefaultMaxPostAge
	}
	if c.MinLegalScore == 0 {
		c.MinLegalScore = DefaultMinLegalScore
	}
	if c.MinRecruitScore == 0 {
		c.MinRecruitScore = DefaultMinRecruitScore
	}
}

// Classifier scores and filters candidate posts. Safe for concurrent use:
// all matchers are built once in New and never mutated.
type Classifier struct {
	cfg        Config
	legal      *keywordSet
	recruit    *keywordSet
	strong     *keywordSet
	exclusions []exclusionRule
}

// New builds a classifier with its keyword automatons.
func New(cfg Config) *Classifier {
	cfg.SetDefaults()
	return &Classifier{
		cfg:        cfg,
		legal:      newKeywordSet(legalKeywords),
		recruit:    newKeywordSet(recruitKeywords),
		strong:     newKeywordSet(strongRecruitPhrases),
		exclusions: buildExclusionRules(cfg.Exclusions),
	}
}

// Classify produces the verdict for one post text. publishedAt may be nil;
// now is supplied by the caller so the function stays deterministic.
func (c *Classifier) Classify(text string, publishedAt *time.Time, now time.Time) domain.Verdict {
	normalized := Normalize(text)
	if normalized == "" {
		return domain.Reject(domain.ExclusionEmptyText)
	}

	// Freshness is a hard requirement: no date means no accept, and a date
	// further in the future than plain clock drift is just as disqualifying.
	if publishedAt == nil {
		return domain.Reject(domain.ExclusionTooOld)
	}
	if age := now.Sub(*publishedAt); age > c.cfg.MaxPostAge || age < -maxFutureSkew {
		return domain.Reject(domain.ExclusionTooOld)
	}

	// Ordered exclusion scan, first match wins.
	hasStrongRecruit := c.strong.contains(normalized)
	for _, rule := range c.exclusions {
		if rule.matches(normalized, hasStrongRecruit) {
			return domain.Reject(rule.reason)
		}
	}

	words := wordCount(normalized)
	legalMatched, legalHits := c.legal.match(normalized)
	recruitMatched, recruitHits := c.recruit.match(normalized)

	legalScore := saturatingScore(legalHits, words)
	recruitScore := saturatingScore(recruitHits, words)

	verdict := domain.Verdict{
		LegalScore:     legalScore,
		RecruitScore:   recruitScore,
		MatchedSignals: append(legalMatched, recruitMatched...),
		Professions:    matchProfessions(legalMatched),
	}

	if legalScore < c.cfg.MinLegalScore || recruitScore < c.cfg.MinRecruitScore {
		verdict.Exclusion = domain.ExclusionLowScore
		return verdict
	}

	verdict.Accepted = true
	return verdict
}

// ClassifyPost is a convenience wrapper over Classify for a candidate record.
func (c *Classifier) ClassifyPost(post *domain.CandidatePost, now time.Time) domain.Verdict {
	return c.Classify(post.Text, post.PublishedAt, now)
}

// matchProfessions returns the profession labels whose keywords appear in
// the matched legal keywords. Informational only.
func matchProfessions(legalMatched []string) []string {
	matched := make(map[string]bool, len(legalMatched))
	for _, kw := range legalMatched {
		matched[kw] = true
	}

	var labels []string
	for _, label := range professionOrder {
		for _, kw := range professionLabels[label] {
			if matched[kw] {
				labels = append(labels, label)
				break
			}
		}
	}
	return labels
}

// professionOrder fixes iteration order over professionLabels so verdicts
// stay byte-identical across runs.
var professionOrder = []string{"avocat", "juriste", "fiscaliste", "notaire"}
