package classifier

import (
	"strings"

	"github.com/SergeOin/titan/internal/domain"
)

// exclusionRule is one entry of the fixed-priority exclusion scan.
type exclusionRule struct {
	reason  domain.ExclusionReason
	matches func(normalized string, hasStrongRecruit bool) bool
}

// buildExclusionRules assembles the enabled rules in their fixed priority
// order. The order is part of the contract: a post matching both an
// internship keyword and a strong recruitment phrase is still rejected as
// stage_alternance.
func buildExclusionRules(t Toggles) []exclusionRule {
	var rules []exclusionRule

	if t.Internship {
		rules = append(rules, exclusionRule{
			reason: domain.ExclusionInternship,
			matches: func(s string, _ bool) bool {
				return containsAny(s, internshipKeywords)
			},
		})
	}
	if t.Freelance {
		rules = append(rules, exclusionRule{
			reason: domain.ExclusionFreelance,
			matches: func(s string, _ bool) bool {
				return containsAny(s, freelanceKeywords)
			},
		})
	}
	if t.JobSeeker {
		rules = append(rules, exclusionRule{
			reason: domain.ExclusionJobSeeker,
			matches: func(s string, _ bool) bool {
				return containsAny(s, jobSeekerKeywords)
			},
		})
	}
	if t.Promotional {
		rules = append(rules, exclusionRule{
			reason: domain.ExclusionPromotional,
			matches: func(s string, strong bool) bool {
				// A webinar post that also says "nous recrutons" is
				// still a live offer.
				return !strong && containsAny(s, promotionalKeywords)
			},
		})
	}
	if t.Agency {
		rules = append(rules, exclusionRule{
			reason: domain.ExclusionAgency,
			matches: func(s string, _ bool) bool {
				return containsAny(s, agencyKeywords)
			},
		})
	}
	if t.ForeignLocation {
		rules = append(rules, exclusionRule{
			reason: domain.ExclusionForeignLocation,
			matches: func(s string, _ bool) bool {
				return containsAny(s, foreignLocationKeywords) &&
					!containsAny(s, domesticLocationKeywords)
			},
		})
	}

	return rules
}

// containsAny reports whether any padded keyword occurs in the padded text.
func containsAny(normalized string, keywords []string) bool {
	padded := pad(normalized)
	for _, kw := range keywords {
		if strings.Contains(padded, pad(kw)) {
			return true
		}
	}
	return false
}
