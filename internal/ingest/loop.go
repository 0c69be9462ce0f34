// Package ingest runs the adaptive ingestion loop: plan a cycle, extract
// candidates per keyword, classify, deduplicate, persist, then feed the
// outcome back into the pacing controller and wait.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SergeOin/titan/internal/agent"
	"github.com/SergeOin/titan/internal/classifier"
	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/identity"
	"github.com/SergeOin/titan/internal/logger"
	"github.com/SergeOin/titan/internal/pacing"
	"github.com/SergeOin/titan/internal/ratelimit"
	"github.com/SergeOin/titan/internal/storage"
)

// Default fetch retry parameters.
const (
	DefaultMaxFetchRetries = 2
	DefaultRetryBackoff    = 5 * time.Second
)

// Config holds the loop settings.
type Config struct {
	// Keywords is the rotation of search terms. Each cycle takes the next
	// keywords_per_batch entries, wrapping around.
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
	// MaxFetchRetries bounds retries of one keyword fetch on transient
	// errors. Restriction and CAPTCHA signals are never retried.
	MaxFetchRetries int `mapstructure:"max_fetch_retries" yaml:"max_fetch_retries"`
	// RetryBackoff is the pause between fetch attempts.
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.MaxFetchRetries < 0 {
		c.MaxFetchRetries = 0
	}
	if c.MaxFetchRetries == 0 {
		c.MaxFetchRetries = DefaultMaxFetchRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
}

// Stats is a read-only snapshot of loop activity for the status endpoint.
type Stats struct {
	CyclesRun     int                            `json:"cycles_run"`
	LastCycleAt   time.Time                      `json:"last_cycle_at,omitempty"`
	LastAccepted  int                            `json:"last_accepted"`
	TotalAccepted int                            `json:"total_accepted"`
	Rejections    map[domain.ExclusionReason]int `json:"rejections,omitempty"`
}

// Loop drives the end-to-end ingestion pipeline.
type Loop struct {
	cfg        Config
	agent      agent.Agent
	classifier *classifier.Classifier
	controller *pacing.Controller
	risk       *ratelimit.RiskMonitor
	bucket     *ratelimit.Bucket
	gate       *ratelimit.SessionGate
	writer     *storage.Writer
	logger     logger.Logger
	now        func() time.Time
	randFn     func() float64

	trigger chan struct{}
	cursor  int

	mu    sync.Mutex
	stats Stats
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithRand injects the delay jitter source.
func WithRand(randFn func() float64) Option {
	return func(l *Loop) { l.randFn = randFn }
}

// NewLoop assembles the ingestion loop from its collaborators.
func NewLoop(
	cfg Config,
	ag agent.Agent,
	cl *classifier.Classifier,
	controller *pacing.Controller,
	risk *ratelimit.RiskMonitor,
	bucket *ratelimit.Bucket,
	gate *ratelimit.SessionGate,
	writer *storage.Writer,
	log logger.Logger,
	opts ...Option,
) *Loop {
	cfg.SetDefaults()
	l := &Loop{
		cfg:        cfg,
		agent:      ag,
		classifier: cl,
		controller: controller,
		risk:       risk,
		bucket:     bucket,
		gate:       gate,
		writer:     writer,
		logger:     log,
		now:        time.Now,
		randFn:     rand.Float64,
		trigger:    make(chan struct{}, 1),
	}
	l.stats.Rejections = make(map[domain.ExclusionReason]int)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Trigger requests an immediate cycle. The loop re-plans as soon as it is
// waiting; pacing restrictions still apply, so a paused or capped loop will
// decline the cycle anyway.
func (l *Loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default: // a trigger is already pending
	}
}

// Snapshot returns the current loop statistics.
func (l *Loop) Snapshot() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.stats
	out.Rejections = make(map[domain.ExclusionReason]int, len(l.stats.Rejections))
	for reason, count := range l.stats.Rejections {
		out.Rejections[reason] = count
	}
	return out
}

// Run drives cycles until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("ingestion loop started",
		logger.Int("keywords", len(l.cfg.Keywords)),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Risk cooldown fires before the plan is even consulted and is not
		// interruptible by manual triggers.
		if sleep, tripped := l.risk.Cooldown(); tripped {
			if err := sleepCtx(ctx, sleep); err != nil {
				return err
			}
			continue
		}

		plan := l.controller.Plan()
		if !plan.Allowed {
			l.logger.Info("cycle declined",
				logger.String("reason", plan.Reason),
				logger.Duration("next_wait", plan.NextWait),
			)
			if err := l.wait(ctx, plan.NextWait); err != nil {
				return err
			}
			continue
		}

		outcome := l.runCycle(ctx, plan)
		if err := ctx.Err(); err != nil {
			return err
		}
		l.controller.Report(outcome)
		l.risk.Record(outcome)

		if err := l.wait(ctx, plan.NextWait); err != nil {
			return err
		}
	}
}

// wait sleeps until the timer fires, a trigger arrives or the context is
// cancelled. A trigger wakes the loop early so it can re-plan.
func (l *Loop) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	case <-l.trigger:
		l.logger.Info("manual trigger received, re-planning")
		return nil
	}
}

// sleepCtx sleeps without listening for triggers.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// keywordDelay picks a randomized pause in the plan's delay range, so
// consecutive keyword fetches never fire back to back at a fixed cadence.
func keywordDelay(plan domain.CyclePlan, randFn func() float64) time.Duration {
	if plan.MaxKeywordDelay <= 0 || plan.MaxKeywordDelay < plan.MinKeywordDelay {
		return plan.MinKeywordDelay
	}
	span := plan.MaxKeywordDelay - plan.MinKeywordDelay
	return plan.MinKeywordDelay + time.Duration(randFn()*float64(span))
}

// classified pairs an accepted candidate with its verdict until the batch
// is deduplicated.
type classified struct {
	post    *domain.CandidatePost
	verdict domain.Verdict
}

// runCycle executes one full extract-classify-persist cycle.
func (l *Loop) runCycle(ctx context.Context, plan domain.CyclePlan) domain.CycleOutcome {
	var outcome domain.CycleOutcome

	// The batch never asks for more keywords than the session gate will
	// grant concurrently.
	batchSize := plan.KeywordsPerBatch
	if gateCap := l.gate.Cap(); batchSize > gateCap {
		batchSize = gateCap
	}
	keywords := l.nextKeywords(batchSize)
	if len(keywords) == 0 {
		l.logger.Warn("no keywords configured, cycle skipped")
		return outcome
	}

	started := l.now()
	accepted := make([]classified, 0, plan.ItemsPerKeyword*len(keywords))

	for i, keyword := range keywords {
		if i > 0 {
			if err := sleepCtx(ctx, keywordDelay(plan, l.randFn)); err != nil {
				return outcome
			}
		}

		batch, err := l.fetchKeyword(ctx, keyword, plan.ItemsPerKeyword)
		switch {
		case errors.Is(err, agent.ErrCaptcha):
			outcome.CaptchaDetected = true
		case errors.Is(err, agent.ErrRestricted):
			outcome.RestrictionDetected = true
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return outcome
		case err != nil:
			l.logger.Error("keyword fetch failed",
				logger.String("keyword", keyword),
				logger.Error(err),
			)
			continue
		}
		if outcome.Failed() {
			// Stop extracting immediately; the rest of the cycle's keywords
			// would only compound the signal.
			break
		}

		if len(batch) == 0 {
			outcome.EmptyKeywords++
			continue
		}
		accepted = append(accepted, l.classifyBatch(batch, keyword)...)
	}

	inserted := l.persist(ctx, accepted)
	outcome.ItemsAccepted = inserted

	l.mu.Lock()
	l.stats.CyclesRun++
	l.stats.LastCycleAt = started
	l.stats.LastAccepted = inserted
	l.stats.TotalAccepted += inserted
	l.mu.Unlock()

	l.logger.Info("cycle complete",
		logger.Int("keywords", len(keywords)),
		logger.Int("accepted", inserted),
		logger.Int("empty_keywords", outcome.EmptyKeywords),
		logger.Bool("restricted", outcome.Failed()),
	)
	return outcome
}

// fetchKeyword extracts one keyword behind the session gate and the rate
// limiter, retrying transient errors only.
func (l *Loop) fetchKeyword(ctx context.Context, keyword string, limit int) ([]domain.CandidatePost, error) {
	if err := l.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer l.gate.Release()

	if err := l.bucket.Consume(ctx, 1); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= l.cfg.MaxFetchRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, l.cfg.RetryBackoff); err != nil {
				return nil, err
			}
		}

		posts, err := l.agent.Fetch(ctx, keyword, limit)
		if err == nil {
			return posts, nil
		}
		// Anti-automation signals and cancellation are terminal.
		if errors.Is(err, agent.ErrRestricted) || errors.Is(err, agent.ErrCaptcha) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
		l.logger.Warn("fetch attempt failed",
			logger.String("keyword", keyword),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return nil, fmt.Errorf("fetch %q exhausted retries: %w", keyword, lastErr)
}

// classifyBatch runs the classifier over one keyword's candidates and
// returns the accepted ones with their verdicts.
func (l *Loop) classifyBatch(batch []domain.CandidatePost, keyword string) []classified {
	now := l.now()
	out := make([]classified, 0, len(batch))
	for i := range batch {
		post := &batch[i]
		if post.SourceKeyword == "" {
			post.SourceKeyword = keyword
		}
		if post.CollectedAt.IsZero() {
			post.CollectedAt = now
		}

		verdict := l.classifier.ClassifyPost(post, now)
		if !verdict.Accepted {
			l.mu.Lock()
			l.stats.Rejections[verdict.Exclusion]++
			l.mu.Unlock()
			l.logger.Debug("candidate rejected",
				logger.String("keyword", keyword),
				logger.String("reason", string(verdict.Exclusion)),
			)
			continue
		}
		out = append(out, classified{post: post, verdict: verdict})
	}
	return out
}

// persist deduplicates the cycle's accepted candidates and writes them down
// the storage cascade. Returns the number of newly inserted posts.
func (l *Loop) persist(ctx context.Context, accepted []classified) int {
	if len(accepted) == 0 {
		return 0
	}

	verdicts := make(map[*domain.CandidatePost]domain.Verdict, len(accepted))
	candidates := make([]*domain.CandidatePost, 0, len(accepted))
	for _, c := range accepted {
		verdicts[c.post] = c.verdict
		candidates = append(candidates, c.post)
	}

	// In-batch dedup runs before any write so storage never sees two copies
	// of the same post from one cycle.
	unique := identity.DedupeBatch(candidates)

	now := l.now()
	persisted := make([]*domain.PersistedPost, 0, len(unique))
	for _, cand := range unique {
		verdict := verdicts[cand]
		persisted = append(persisted, &domain.PersistedPost{
			ID:                 uuid.NewString(),
			Author:             cand.Author,
			Company:            cand.Company,
			Text:               cand.Text,
			PublishedAt:        cand.PublishedAt,
			SourceKeyword:      cand.SourceKeyword,
			CollectedAt:        cand.CollectedAt,
			CanonicalPermalink: identity.CanonicalPermalink(cand.Permalink),
			ContentHash:        identity.ContentHash(cand.Author, cand.Text),
			LegalScore:         verdict.LegalScore,
			RecruitScore:       verdict.RecruitScore,
			Professions:        verdict.Professions,
			CreatedAt:          now,
		})
	}

	inserted, err := l.writer.Write(ctx, persisted)
	if err != nil {
		l.logger.Error("batch lost, every storage tier failed",
			logger.Int("batch", len(persisted)),
			logger.Error(err),
		)
		return 0
	}
	return inserted
}

// nextKeywords returns the next n keywords of the rotation, wrapping around.
func (l *Loop) nextKeywords(n int) []string {
	total := len(l.cfg.Keywords)
	if total == 0 || n <= 0 {
		return nil
	}
	if n > total {
		n = total
	}

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, l.cfg.Keywords[(l.cursor+i)%total])
	}
	l.cursor = (l.cursor + n) % total
	return out
}
