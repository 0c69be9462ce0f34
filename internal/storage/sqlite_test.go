package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "titan.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteWriteIsIdempotentPerIdentity(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	t.Run("permalink conflict", func(t *testing.T) {
		a := testPost("https://www.linkedin.com/feed/update/urn:li:activity:10")
		b := testPost("https://www.linkedin.com/feed/update/urn:li:activity:10")
		b.ContentHash = "ffffffffffffffff"

		inserted, err := s.Write(ctx, []*domain.PersistedPost{a})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)

		inserted, err = s.Write(ctx, []*domain.PersistedPost{b})
		require.NoError(t, err)
		assert.Zero(t, inserted)
	})

	t.Run("author and date conflict", func(t *testing.T) {
		published := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
		a := testPost("")
		a.PublishedAt = &published
		a.ContentHash = "1111111111111111"
		b := testPost("")
		b.PublishedAt = &published
		b.ContentHash = "2222222222222222"

		inserted, err := s.Write(ctx, []*domain.PersistedPost{a, b})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
	})

	t.Run("content hash conflict", func(t *testing.T) {
		a := testPost("")
		a.Author = "Hash Only"
		a.PublishedAt = nil
		a.ContentHash = "3333333333333333"
		b := testPost("")
		b.Author = "Hash Only Too"
		b.PublishedAt = nil
		b.ContentHash = "3333333333333333"

		inserted, err := s.Write(ctx, []*domain.PersistedPost{a, b})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
	})
}

func TestSQLiteListSearchAndPagination(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	batch := make([]*domain.PersistedPost, 0, 5)
	for i := 0; i < 5; i++ {
		p := testPost("")
		p.ID = uuid.NewString()
		p.Author = "Author " + string(rune('A'+i))
		p.ContentHash = uuid.NewString()[:16]
		published := time.Date(2026, 3, 1+i, 9, 0, 0, 0, time.UTC)
		p.PublishedAt = &published
		p.CollectedAt = published.Add(time.Hour)
		if i == 0 {
			p.Text = "Poste de fiscaliste senior a pourvoir"
		}
		batch = append(batch, p)
	}
	inserted, err := s.Write(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 5, inserted)

	t.Run("pagination", func(t *testing.T) {
		posts, total, err := s.List(ctx, ListQuery{Limit: 2, SortField: "collected_at"})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, posts, 2)

		posts, _, err = s.List(ctx, ListQuery{Limit: 2, Offset: 4, SortField: "collected_at"})
		require.NoError(t, err)
		assert.Len(t, posts, 1)
	})

	t.Run("search", func(t *testing.T) {
		posts, total, err := s.List(ctx, ListQuery{Search: "fiscaliste"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, posts, 1)
		assert.Contains(t, posts[0].Text, "fiscaliste")
	})

	t.Run("sort descending", func(t *testing.T) {
		posts, _, err := s.List(ctx, ListQuery{SortField: "collected_at", SortDesc: true})
		require.NoError(t, err)
		require.NotEmpty(t, posts)
		assert.Equal(t, "Author E", posts[0].Author)
	})

	t.Run("unknown sort field falls back", func(t *testing.T) {
		_, _, err := s.List(ctx, ListQuery{SortField: "; DROP TABLE posts"})
		assert.NoError(t, err)
	})
}

func TestSQLiteFlags(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	post := testPost("https://www.linkedin.com/feed/update/urn:li:activity:77")
	_, err := s.Write(ctx, []*domain.PersistedPost{post})
	require.NoError(t, err)

	require.NoError(t, s.SetFavorite(ctx, post.ID, true))
	require.NoError(t, s.SetDeleted(ctx, post.ID, true))

	// Soft-deleted posts disappear from the default listing.
	posts, total, err := s.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, posts)

	posts, _, err = s.List(ctx, ListQuery{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, posts[0].IsFavorite)
	assert.True(t, posts[0].IsDeleted)

	// Restore brings it back.
	require.NoError(t, s.SetDeleted(ctx, post.ID, false))
	_, total, err = s.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	assert.ErrorIs(t, s.SetFavorite(ctx, "no-such-id", true), ErrPostNotFound)
}

func TestSQLiteCountAcceptedSince(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	old := testPost("")
	old.ContentHash = "aaaaaaaaaaaaaaaa"
	old.PublishedAt = nil
	old.CollectedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	recent := testPost("")
	recent.ContentHash = "bbbbbbbbbbbbbbbb"
	recent.PublishedAt = nil
	recent.CollectedAt = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	_, err := s.Write(ctx, []*domain.PersistedPost{old, recent})
	require.NoError(t, err)

	count, err := s.CountAcceptedSince(ctx, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDashboardSeesPostsAcceptedByHealthyPrimary(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	primary := &fakeBackend{name: "primary"}
	w := NewWriter(logger.NewNop(), primary, s)
	w.MirrorTo(s)

	post := testPost("https://www.linkedin.com/feed/update/urn:li:activity:500")
	inserted, err := w.Write(ctx, []*domain.PersistedPost{post})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	// The listing and flag surface must work even though the primary tier
	// accepted the batch.
	_, total, err := s.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.NoError(t, s.SetFavorite(ctx, post.ID, true))
}

func TestSQLiteMigratesLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titan.db")

	// Seed a pre-identity database shape.
	db, err := sqlx.Connect("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE posts (
			id           TEXT PRIMARY KEY,
			author       TEXT NOT NULL,
			text         TEXT NOT NULL,
			collected_at TIMESTAMP NOT NULL
		)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO posts (id, author, text, collected_at) VALUES (?, ?, ?, ?)`,
		"legacy-1", "Old Author", "legacy text", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := NewSQLiteStore(path, logger.NewNop())
	require.NoError(t, err)
	defer s.Close()

	posts, total, err := s.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, posts, 1)
	assert.Equal(t, "legacy-1", posts[0].ID)
	assert.Equal(t, "Old Author", posts[0].Author)
}
