package classifier

import (
	"math"
	"sort"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Scoring constants. Density is hits per word scaled to a 0..densityScale
// range; the log ratio saturates so keyword stuffing cannot trivially max
// out a score.
const (
	densityScale  = 40.0
	minScoreWords = 8.0
)

// keywordSet is a padded-keyword Aho-Corasick matcher. Padding both the
// patterns and the text with single spaces keeps matches on word boundaries,
// so "cdi" never fires inside "cdiscount".
type keywordSet struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	padded   []string
}

func newKeywordSet(keywords []string) *keywordSet {
	padded := make([]string, len(keywords))
	for i, kw := range keywords {
		padded[i] = pad(kw)
	}
	return &keywordSet{
		matcher:  ahocorasick.NewStringMatcher(padded),
		keywords: keywords,
		padded:   padded,
	}
}

// match returns the distinct keywords present in normalized text and the
// total number of occurrences across all of them.
func (s *keywordSet) match(normalized string) (matched []string, hits int) {
	padded := pad(normalized)
	for _, idx := range s.matcher.Match([]byte(padded)) {
		if idx >= len(s.keywords) {
			continue
		}
		matched = append(matched, s.keywords[idx])
		hits += strings.Count(padded, s.padded[idx])
	}
	sort.Strings(matched)
	return matched, hits
}

// contains reports whether any keyword of the set is present.
func (s *keywordSet) contains(normalized string) bool {
	return len(s.matcher.Match([]byte(pad(normalized)))) > 0
}

// saturatingScore maps a hit count to [0,1] with logarithmic dampening,
// normalized by text length so long posts are not penalized and short
// stuffed posts gain nothing past the saturation point.
func saturatingScore(hits, words int) float64 {
	if hits <= 0 {
		return 0
	}
	w := float64(words)
	if w < minScoreWords {
		w = minScoreWords
	}
	density := float64(hits) / w * densityScale
	if density > densityScale {
		density = densityScale
	}
	return math.Min(1, math.Log1p(density)/math.Log1p(densityScale))
}
