// Package ratelimit bounds request rate and concurrent browser sessions.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/SergeOin/titan/internal/logger"
)

// Default limiter parameters.
const (
	DefaultCapacity = 10
	DefaultRefill   = 0.5
	DefaultSessions = 2
)

// Config holds the limiter and session-gate settings.
type Config struct {
	// Capacity is the bucket size in tokens.
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
	// RefillPerSecond is the steady refill rate in tokens per second.
	RefillPerSecond float64 `mapstructure:"refill_per_second" yaml:"refill_per_second"`
	// Sessions bounds the number of concurrent browser sessions.
	Sessions int `mapstructure:"sessions" yaml:"sessions"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.RefillPerSecond <= 0 {
		c.RefillPerSecond = DefaultRefill
	}
	if c.Sessions <= 0 {
		c.Sessions = DefaultSessions
	}
}

// Bucket is a leaky-bucket rate limiter, safe under concurrent callers.
// Consume never busy-polls: when tokens are short it sleeps exactly the
// refill time for the deficit, cancellable through the context.
type Bucket struct {
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewBucket creates a bucket with the given capacity and refill rate.
func NewBucket(cfg Config, log logger.Logger) *Bucket {
	cfg.SetDefaults()
	return &Bucket{
		limiter: rate.NewLimiter(rate.Limit(cfg.RefillPerSecond), cfg.Capacity),
		logger:  log,
	}
}

// Consume grants n tokens, waiting for the deficit to refill when needed.
func (b *Bucket) Consume(ctx context.Context, n int) error {
	if err := b.limiter.WaitN(ctx, n); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// Allow reports whether one token is available right now, without waiting.
func (b *Bucket) Allow() bool {
	return b.limiter.Allow()
}

// Tokens returns the number of tokens currently available.
func (b *Bucket) Tokens() float64 {
	return b.limiter.Tokens()
}
