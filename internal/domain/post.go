// Package domain defines the shared types flowing through the ingestion pipeline.
package domain

import "time"

// CandidatePost is a raw, unclassified record produced by the extraction agent.
// It lives in memory for one cycle only, until classified.
type CandidatePost struct {
	Author        string     `json:"author"`
	Company       string     `json:"company,omitempty"`
	Text          string     `json:"text"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Permalink     string     `json:"permalink,omitempty"`
	SourceKeyword string     `json:"source_keyword"`
	CollectedAt   time.Time  `json:"collected_at"`
}

// PersistedPost is a candidate plus its accepted verdict scores, identity key
// components and storage bookkeeping. Created once on first successful write;
// immutable afterwards except for the flags, which the dashboard owns.
type PersistedPost struct {
	ID                 string     `db:"id"                  json:"id"`
	Author             string     `db:"author"              json:"author"`
	Company            string     `db:"company"             json:"company,omitempty"`
	Text               string     `db:"text"                json:"text"`
	PublishedAt        *time.Time `db:"published_at"        json:"published_at,omitempty"`
	SourceKeyword      string     `db:"source_keyword"      json:"source_keyword"`
	CollectedAt        time.Time  `db:"collected_at"        json:"collected_at"`
	CanonicalPermalink string     `db:"permalink"           json:"permalink,omitempty"`
	ContentHash        string     `db:"content_hash"        json:"content_hash"`
	LegalScore         float64    `db:"legal_score"         json:"legal_score"`
	RecruitScore       float64    `db:"recruit_score"       json:"recruit_score"`
	Professions        []string   `db:"-"                   json:"professions,omitempty"`
	IsFavorite         bool       `db:"is_favorite"         json:"is_favorite"`
	IsDeleted          bool       `db:"is_deleted"          json:"is_deleted"`
	CreatedAt          time.Time  `db:"created_at"          json:"created_at"`
}

// KeyKind identifies which branch of the identity chain produced a key.
type KeyKind string

const (
	// KeyPermalink is derived from the canonical permalink.
	KeyPermalink KeyKind = "permalink"
	// KeyAuthorDate is derived from the (author, published_at) pair.
	KeyAuthorDate KeyKind = "author_date"
	// KeyHash is derived from the normalized author+text content hash.
	KeyHash KeyKind = "hash"
)

// IdentityKey is the deduplication/uniqueness key derived from a candidate.
// Exactly one key is chosen per candidate, via a fixed priority chain.
type IdentityKey struct {
	Kind  KeyKind
	Value string
}

// String renders the key in a form usable as a storage key.
func (k IdentityKey) String() string {
	return string(k.Kind) + ":" + k.Value
}
