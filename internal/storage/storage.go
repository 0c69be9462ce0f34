// Package storage persists accepted posts through an ordered cascade of
// backends: a document store, an embedded relational store and a flat
// append-only file. A write that lands anywhere is a success; only
// exhausting the whole cascade fails the batch.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
)

// ErrAllBackendsFailed is returned when every tier of the cascade rejected
// a batch.
var ErrAllBackendsFailed = errors.New("all storage backends failed")

// Backend is one tier of the cascade. Write must be idempotent per
// identity key: re-ingesting the same post is a no-op, not an error.
type Backend interface {
	// Name identifies the backend in logs and health reports.
	Name() string
	// Write stores the batch and returns the number of newly inserted
	// posts (duplicates silently skipped).
	Write(ctx context.Context, posts []*domain.PersistedPost) (int, error)
	// Ping reports backend connectivity.
	Ping(ctx context.Context) error
}

// Config holds the storage cascade settings.
type Config struct {
	MongoURI        string        `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"   yaml:"mongo_database"`
	SQLitePath      string        `mapstructure:"sqlite_path"      yaml:"sqlite_path"`
	FallbackPath    string        `mapstructure:"fallback_path"    yaml:"fallback_path"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"  yaml:"connect_timeout"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.MongoDatabase == "" {
		c.MongoDatabase = "titan"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "titan.db"
	}
	if c.FallbackPath == "" {
		c.FallbackPath = "titan_fallback.jsonl"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// Writer is the cascading persistence writer: backends are tried in
// priority order and iteration stops at the first success. A designated
// read mirror is additionally written on every batch, so the tier serving
// dashboard reads stays complete even while an earlier tier is healthy.
type Writer struct {
	backends []Backend
	mirror   Backend
	logger   logger.Logger
}

// NewWriter assembles a writer over the given ordered backends.
func NewWriter(log logger.Logger, backends ...Backend) *Writer {
	return &Writer{backends: backends, logger: log}
}

// MirrorTo designates the backend that serves dashboard reads. It receives
// every batch in addition to the cascade's first-success tier; its
// idempotent writes make the double delivery a no-op when it is also the
// tier that accepted the batch.
func (w *Writer) MirrorTo(b Backend) {
	w.mirror = b
}

// Write pushes a batch down the cascade. Returns the inserted count from
// the first backend that accepted the batch.
func (w *Writer) Write(ctx context.Context, posts []*domain.PersistedPost) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	var failures []string
	for _, backend := range w.backends {
		inserted, err := backend.Write(ctx, posts)
		if err == nil {
			w.logger.Debug("batch persisted",
				logger.String("backend", backend.Name()),
				logger.Int("batch", len(posts)),
				logger.Int("inserted", inserted),
			)
			w.mirrorWrite(ctx, backend, posts)
			return inserted, nil
		}

		failures = append(failures, fmt.Sprintf("%s: %v", backend.Name(), err))
		w.logger.Warn("storage backend failed, falling through",
			logger.String("backend", backend.Name()),
			logger.Error(err),
		)
	}

	return 0, fmt.Errorf("%w: %s", ErrAllBackendsFailed, strings.Join(failures, "; "))
}

// mirrorWrite copies the batch to the read mirror when a different tier
// accepted it. Best-effort: the batch already landed somewhere durable, so
// a mirror failure is logged and does not fail the write.
func (w *Writer) mirrorWrite(ctx context.Context, accepted Backend, posts []*domain.PersistedPost) {
	if w.mirror == nil || w.mirror == accepted {
		return
	}
	if _, err := w.mirror.Write(ctx, posts); err != nil {
		w.logger.Warn("read mirror not updated",
			logger.String("backend", w.mirror.Name()),
			logger.Error(err),
		)
	}
}

// Health pings every backend and reports per-backend connectivity.
func (w *Writer) Health(ctx context.Context) map[string]string {
	health := make(map[string]string, len(w.backends))
	for _, backend := range w.backends {
		if err := backend.Ping(ctx); err != nil {
			health[backend.Name()] = err.Error()
		} else {
			health[backend.Name()] = "ok"
		}
	}
	return health
}

// identityOf mirrors the identity priority chain over a persisted post's
// stored key components.
func identityOf(p *domain.PersistedPost) domain.IdentityKey {
	if p.CanonicalPermalink != "" {
		return domain.IdentityKey{Kind: domain.KeyPermalink, Value: p.CanonicalPermalink}
	}
	if p.Author != "" && p.PublishedAt != nil {
		return domain.IdentityKey{
			Kind:  domain.KeyAuthorDate,
			Value: strings.ToLower(strings.TrimSpace(p.Author)) + "|" + p.PublishedAt.UTC().Format(time.RFC3339),
		}
	}
	return domain.IdentityKey{Kind: domain.KeyHash, Value: p.ContentHash}
}
