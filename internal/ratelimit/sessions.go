package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// SessionGate bounds the number of browser sessions held open at once.
// The pacing controller caps keywords_per_batch by Cap() so a batch never
// asks for more sessions than the gate will grant.
type SessionGate struct {
	sem *semaphore.Weighted
	cap int
}

// NewSessionGate creates a gate admitting at most n concurrent sessions.
func NewSessionGate(n int) *SessionGate {
	if n <= 0 {
		n = DefaultSessions
	}
	return &SessionGate{sem: semaphore.NewWeighted(int64(n)), cap: n}
}

// Acquire blocks until a session slot is free or the context is cancelled.
func (g *SessionGate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire session slot: %w", err)
	}
	return nil
}

// Release frees one session slot.
func (g *SessionGate) Release() {
	g.sem.Release(1)
}

// Cap returns the maximum number of concurrent sessions.
func (g *SessionGate) Cap() int {
	return g.cap
}
