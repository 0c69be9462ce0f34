package domain

// ExclusionReason is the closed taxonomy of reasons a candidate is rejected.
// Exactly one reason is produced per rejection; callers can match exhaustively.
type ExclusionReason string

const (
	// ExclusionNone marks an accepted verdict.
	ExclusionNone ExclusionReason = ""
	// ExclusionEmptyText rejects malformed or empty post text.
	ExclusionEmptyText ExclusionReason = "texte_vide"
	// ExclusionTooOld rejects posts older than the configured maximum age,
	// or with no publish date at all.
	ExclusionTooOld ExclusionReason = "post_too_old"
	// ExclusionInternship rejects internship/apprenticeship offers.
	ExclusionInternship ExclusionReason = "stage_alternance"
	// ExclusionFreelance rejects freelance/temp-mission offers.
	ExclusionFreelance ExclusionReason = "freelance_mission"
	// ExclusionJobSeeker rejects "open to work" job-seeker posts.
	ExclusionJobSeeker ExclusionReason = "recherche_emploi"
	// ExclusionPromotional rejects purely promotional or informational posts
	// (webinars, articles, congratulations) without recruitment language.
	ExclusionPromotional ExclusionReason = "contenu_promotionnel"
	// ExclusionAgency rejects third-party recruiting-agency posts.
	ExclusionAgency ExclusionReason = "cabinet_recrutement"
	// ExclusionForeignLocation rejects foreign-location offers without a
	// domestic-location marker.
	ExclusionForeignLocation ExclusionReason = "localisation_etrangere"
	// ExclusionLowScore rejects posts whose scores miss the thresholds.
	ExclusionLowScore ExclusionReason = "score_below_threshold"
)

// Verdict is the classifier's decision for one candidate post.
// It is a pure function of (text, publish date, configuration): identical
// inputs always produce an identical verdict.
type Verdict struct {
	Accepted       bool            `json:"accepted"`
	LegalScore     float64         `json:"legal_score"`
	RecruitScore   float64         `json:"recruit_score"`
	MatchedSignals []string        `json:"matched_signals,omitempty"`
	Professions    []string        `json:"professions,omitempty"`
	Exclusion      ExclusionReason `json:"exclusion,omitempty"`
}

// Reject builds a rejection verdict with the given reason.
func Reject(reason ExclusionReason) Verdict {
	return Verdict{Accepted: false, Exclusion: reason}
}
