// Package identity derives stable deduplication keys from candidate posts.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/SergeOin/titan/internal/domain"
)

// hashLength is the truncated hex length of a content hash.
const hashLength = 16

// activityPattern extracts the stable content identifier from a feed
// permalink, ignoring tracking parameters and trailing slashes.
var activityPattern = regexp.MustCompile(`urn:li:activity:(\d+)`)

// digitRuns collapses numeric runs so post counters and dates inside the
// text never defeat content matching.
var digitRuns = regexp.MustCompile(`\d+`)

// whitespaceRuns collapses whitespace for hashing normalization.
var whitespaceRuns = regexp.MustCompile(`\s+`)

// CanonicalPermalink reduces a post URL to one fixed shape. Two URLs
// referring to the same activity canonicalize identically regardless of
// query strings, fragments or trailing slashes. Returns "" when no stable
// identifier can be extracted.
func CanonicalPermalink(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	m := activityPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return "https://www.linkedin.com/feed/update/urn:li:activity:" + m[1]
}

// ContentHash hashes normalized author+text into a fixed-length truncated
// digest. Author casing and whitespace, text casing and digit runs are all
// normalized away first.
func ContentHash(author, text string) string {
	a := normalizeForHash(author)
	t := normalizeForHash(text)
	sum := sha256.Sum256([]byte(a + "\x00" + t))
	return hex.EncodeToString(sum[:])[:hashLength]
}

func normalizeForHash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = digitRuns.ReplaceAllString(s, "#")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return s
}

// ResolveKey chooses exactly one identity key per candidate via the fixed
// priority chain: canonical permalink, then (author, published) pair, then
// content hash. A candidate with a usable permalink is never deduplicated
// by content hash alone.
func ResolveKey(post *domain.CandidatePost) domain.IdentityKey {
	if canonical := CanonicalPermalink(post.Permalink); canonical != "" {
		return domain.IdentityKey{Kind: domain.KeyPermalink, Value: canonical}
	}
	if post.Author != "" && post.PublishedAt != nil {
		return domain.IdentityKey{
			Kind:  domain.KeyAuthorDate,
			Value: fmt.Sprintf("%s|%s", strings.ToLower(strings.TrimSpace(post.Author)), post.PublishedAt.UTC().Format(time.RFC3339)),
		}
	}
	return domain.IdentityKey{Kind: domain.KeyHash, Value: ContentHash(post.Author, post.Text)}
}

// DedupeBatch drops later duplicates within one cycle, keeping first
// occurrences in order. Storage-level unique constraints remain the second
// line of defense.
func DedupeBatch(posts []*domain.CandidatePost) []*domain.CandidatePost {
	seen := make(map[domain.IdentityKey]bool, len(posts))
	unique := make([]*domain.CandidatePost, 0, len(posts))
	for _, post := range posts {
		key := ResolveKey(post)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, post)
	}
	return unique
}
