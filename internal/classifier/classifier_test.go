package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeOin/titan/internal/domain"
)

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	return New(Config{Exclusions: AllToggles()})
}

func daysAgo(now time.Time, days int) *time.Time {
	d := now.AddDate(0, 0, -days)
	return &d
}

func TestClassifyAcceptsRecruitmentOffer(t *testing.T) {
	c := testClassifier(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	text := "Notre cabinet recrute un avocat collaborateur en CDI à Paris, 3-5 ans d'expérience"
	verdict := c.Classify(text, daysAgo(now, 2), now)

	require.True(t, verdict.Accepted)
	assert.Equal(t, domain.ExclusionNone, verdict.Exclusion)
	assert.Greater(t, verdict.LegalScore, 0.3)
	assert.Greater(t, verdict.RecruitScore, 0.3)
	assert.Contains(t, verdict.Professions, "avocat")
}

func TestClassifyRejectsEmptyText(t *testing.T) {
	c := testClassifier(t)
	now := time.Now()

	for _, text := range []string{"", "   ", "🔥🔥🔥", "---"} {
		verdict := c.Classify(text, daysAgo(now, 1), now)
		assert.False(t, verdict.Accepted, "text %q", text)
		assert.Equal(t, domain.ExclusionEmptyText, verdict.Exclusion, "text %q", text)
	}
}

func TestClassifyRejectsOldAndUndatedPosts(t *testing.T) {
	c := testClassifier(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	text := "Notre cabinet recrute un juriste en CDI"

	verdict := c.Classify(text, daysAgo(now, 30), now)
	assert.Equal(t, domain.ExclusionTooOld, verdict.Exclusion)

	// A missing publish date is disqualifying, not neutral.
	verdict = c.Classify(text, nil, now)
	assert.Equal(t, domain.ExclusionTooOld, verdict.Exclusion)
}

func TestClassifyRejectsFutureDatedPosts(t *testing.T) {
	c := testClassifier(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	text := "Notre cabinet recrute un avocat collaborateur en CDI à Paris, 3-5 ans d'expérience"

	// A timestamp days ahead of the local clock must not read as fresh.
	future := now.Add(72 * time.Hour)
	verdict := c.Classify(text, &future, now)
	assert.False(t, verdict.Accepted)
	assert.Equal(t, domain.ExclusionTooOld, verdict.Exclusion)

	// Minor drift between the sidecar clock and ours still passes.
	skewed := now.Add(10 * time.Minute)
	verdict = c.Classify(text, &skewed, now)
	assert.True(t, verdict.Accepted)
}

func TestClassifyExclusionReasons(t *testing.T) {
	c := testClassifier(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		text   string
		reason domain.ExclusionReason
	}{
		{
			name:   "internship beats contract type",
			text:   "Stage de 6 mois en droit des affaires, Paris, CDI possible",
			reason: domain.ExclusionInternship,
		},
		{
			name:   "freelance",
			text:   "Mission de remplacement pour un juriste en freelance",
			reason: domain.ExclusionFreelance,
		},
		{
			name:   "job seeker",
			text:   "Jeune avocate, je recherche un poste en droit social",
			reason: domain.ExclusionJobSeeker,
		},
		{
			name:   "promotional",
			text:   "Webinaire droit social la semaine prochaine, inscrivez-vous",
			reason: domain.ExclusionPromotional,
		},
		{
			name:   "agency",
			text:   "Pour notre client, cabinet d'avocats, nous recherchons un juriste",
			reason: domain.ExclusionAgency,
		},
		{
			name:   "foreign location",
			text:   "Recrutement juriste à Genève pour notre bureau",
			reason: domain.ExclusionForeignLocation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := c.Classify(tt.text, daysAgo(now, 2), now)
			assert.False(t, verdict.Accepted)
			assert.Equal(t, tt.reason, verdict.Exclusion)
		})
	}
}

func TestClassifyInternshipBeatsStrongRecruitPhrase(t *testing.T) {
	c := testClassifier(t)
	now := time.Now()

	// Rule order is part of the contract: an internship offer stays
	// excluded even when it carries "nous recrutons".
	verdict := c.Classify("Stage en droit des affaires, nous recrutons un stagiaire", daysAgo(now, 1), now)
	assert.Equal(t, domain.ExclusionInternship, verdict.Exclusion)
}

func TestClassifyStrongPhraseRescuesPromotionalPost(t *testing.T) {
	c := testClassifier(t)
	now := time.Now()

	verdict := c.Classify("Webinaire droit social, et nous recrutons un juriste en CDI", daysAgo(now, 1), now)
	require.True(t, verdict.Accepted, "exclusion: %s", verdict.Exclusion)
}

func TestClassifyDomesticLocationRescuesForeignMention(t *testing.T) {
	c := testClassifier(t)
	now := time.Now()

	verdict := c.Classify("Recrutement juriste à Genève et Paris", daysAgo(now, 1), now)
	require.True(t, verdict.Accepted, "exclusion: %s", verdict.Exclusion)
}

func TestClassifyRejectsLowScore(t *testing.T) {
	c := testClassifier(t)
	now := time.Now()

	verdict := c.Classify("Bonjour à tous, excellente semaine pleine de réussite à chacun", daysAgo(now, 1), now)
	assert.Equal(t, domain.ExclusionLowScore, verdict.Exclusion)
	assert.Zero(t, verdict.LegalScore)
}

func TestClassifyDisabledToggleSkipsRule(t *testing.T) {
	toggles := AllToggles()
	toggles.Internship = false
	c := New(Config{Exclusions: toggles})
	now := time.Now()

	verdict := c.Classify("Stage en droit des affaires, nous recrutons un stagiaire avocat", daysAgo(now, 1), now)
	assert.True(t, verdict.Accepted, "exclusion: %s", verdict.Exclusion)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := testClassifier(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	text := "Notre cabinet recrute un avocat collaborateur en CDI à Paris"
	published := daysAgo(now, 2)

	first := c.Classify(text, published, now)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, c.Classify(text, published, now))
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Genève", "geneve"},
		{"#Recrutement CDI!", "recrutement cdi"},
		{"  Nous   recrutons\n\nun juriste  ", "nous recrutons un juriste"},
		{"🔥 We're hiring 🔥", "we re hiring"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestKeywordMatchingRespectsWordBoundaries(t *testing.T) {
	assert.False(t, containsAny(Normalize("promotion chez cdiscount"), []string{"cdi"}))
	assert.True(t, containsAny(Normalize("poste en CDI disponible"), []string{"cdi"}))
}

func TestSaturatingScore(t *testing.T) {
	assert.Zero(t, saturatingScore(0, 100))
	assert.Greater(t, saturatingScore(1, 10), 0.0)
	assert.LessOrEqual(t, saturatingScore(500, 10), 1.0)

	// More hits never lower the score.
	prev := 0.0
	for hits := 1; hits <= 20; hits++ {
		s := saturatingScore(hits, 50)
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
}
