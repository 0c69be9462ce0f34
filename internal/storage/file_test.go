package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
)

func TestFileStoreAppendsAndSkipsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.jsonl")
	s, err := NewFileStore(path, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	post := testPost("https://www.linkedin.com/feed/update/urn:li:activity:1")

	inserted, err := s.Write(ctx, []*domain.PersistedPost{post})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// Re-ingesting the same identity is a no-op.
	inserted, err = s.Write(ctx, []*domain.PersistedPost{post})
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestFileStoreRemembersKeysAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.jsonl")
	ctx := context.Background()
	post := testPost("https://www.linkedin.com/feed/update/urn:li:activity:2")

	first, err := NewFileStore(path, logger.NewNop())
	require.NoError(t, err)
	_, err = first.Write(ctx, []*domain.PersistedPost{post})
	require.NoError(t, err)

	// A fresh store instance reloads seen keys from disk.
	second, err := NewFileStore(path, logger.NewNop())
	require.NoError(t, err)
	inserted, err := second.Write(ctx, []*domain.PersistedPost{post})
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestFileStoreToleratesTornLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"x","author":"a","text":"t"`+"\n"), 0o644))

	s, err := NewFileStore(path, logger.NewNop())
	require.NoError(t, err, "a torn tail line must not poison the store")

	inserted, err := s.Write(context.Background(), []*domain.PersistedPost{testPost("")})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestFileStorePing(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "fallback.jsonl"), logger.NewNop())
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}
