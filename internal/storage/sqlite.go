package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/SergeOin/titan/internal/domain"
	"github.com/SergeOin/titan/internal/logger"
)

// ErrPostNotFound is returned for flag mutations on unknown posts.
var ErrPostNotFound = errors.New("post not found")

// schema is the current posts/post_flags shape. Partial unique indexes
// protect whichever identity branch a given post resolved to; insert
// conflicts are ignored so re-ingestion stays a no-op.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id             TEXT PRIMARY KEY,
	author         TEXT NOT NULL,
	company        TEXT NOT NULL DEFAULT '',
	text           TEXT NOT NULL,
	published_at   TIMESTAMP,
	source_keyword TEXT NOT NULL DEFAULT '',
	collected_at   TIMESTAMP NOT NULL,
	permalink      TEXT,
	content_hash   TEXT,
	legal_score    REAL NOT NULL DEFAULT 0,
	recruit_score  REAL NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_posts_permalink
	ON posts(permalink) WHERE permalink IS NOT NULL AND permalink != '';
CREATE UNIQUE INDEX IF NOT EXISTS ux_posts_author_date
	ON posts(author, published_at) WHERE published_at IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS ux_posts_content_hash
	ON posts(content_hash) WHERE content_hash IS NOT NULL AND content_hash != '';

CREATE TABLE IF NOT EXISTS post_flags (
	post_id     TEXT PRIMARY KEY,
	is_favorite INTEGER NOT NULL DEFAULT 0,
	is_deleted  INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore is the embedded relational tier of the cascade. It also
// serves the dashboard's read/query surface and owns the post_flags table.
type SQLiteStore struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewSQLiteStore opens (or creates) the database file, runs the legacy
// migration check and applies the schema.
func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: log}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Name implements Backend.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Ping implements Backend.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// migrate applies the schema, after copying forward any legacy table shape.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	legacy, err := s.legacyColumns(ctx)
	if err != nil {
		return err
	}
	if legacy != nil {
		if err := s.copyForward(ctx, legacy); err != nil {
			return err
		}
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

// legacyColumns returns the column set of a pre-identity posts table, or
// nil when the table is absent or already current. A table without a
// content_hash column predates identity-key storage.
func (s *SQLiteStore) legacyColumns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryxContext(ctx, `PRAGMA table_info(posts)`)
	if err != nil {
		return nil, fmt.Errorf("inspect posts table: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}

	if len(columns) == 0 || columns["content_hash"] {
		return nil, nil
	}
	return columns, nil
}

// copyForward rebuilds the posts table in the current shape, carrying over
// the still-relevant legacy columns, then drops the old table.
func (s *SQLiteStore) copyForward(ctx context.Context, legacy map[string]bool) error {
	s.logger.Info("migrating legacy posts table")

	wanted := []string{
		"id", "author", "company", "text", "published_at",
		"source_keyword", "collected_at", "permalink",
		"legal_score", "recruit_score", "created_at",
	}
	var carried []string
	for _, col := range wanted {
		if legacy[col] {
			carried = append(carried, col)
		}
	}
	if len(carried) == 0 {
		// Nothing recognizable to carry; start fresh.
		if _, err := s.db.ExecContext(ctx, `DROP TABLE posts`); err != nil {
			return fmt.Errorf("drop unrecognized posts table: %w", err)
		}
		return nil
	}

	cols := strings.Join(carried, ", ")
	stmts := []string{
		`ALTER TABLE posts RENAME TO posts_legacy`,
		schema,
		fmt.Sprintf(`INSERT OR IGNORE INTO posts (%s) SELECT %s FROM posts_legacy`, cols, cols),
		`DROP TABLE posts_legacy`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate posts table: %w", err)
		}
	}

	return nil
}

// Write implements Backend. Inserts are idempotent: conflicts on any of
// the identity indexes are silently ignored.
func (s *SQLiteStore) Write(ctx context.Context, posts []*domain.PersistedPost) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin sqlite transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const insert = `
		INSERT OR IGNORE INTO posts
			(id, author, company, text, published_at, source_keyword,
			 collected_at, permalink, content_hash, legal_score, recruit_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)`

	inserted := 0
	for _, post := range posts {
		res, execErr := tx.ExecContext(ctx, insert,
			post.ID, post.Author, post.Company, post.Text, post.PublishedAt,
			post.SourceKeyword, post.CollectedAt, post.CanonicalPermalink,
			post.ContentHash, post.LegalScore, post.RecruitScore, post.CreatedAt,
		)
		if execErr != nil {
			return 0, fmt.Errorf("insert post: %w", execErr)
		}
		affected, _ := res.RowsAffected()
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sqlite transaction: %w", err)
	}
	return inserted, nil
}

// ListQuery is the dashboard's read surface: pagination, free-text search
// and sorting.
type ListQuery struct {
	Search         string
	SortField      string
	SortDesc       bool
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// allowed sort fields; anything else falls back to collected_at.
var sortFields = map[string]string{
	"collected_at":  "p.collected_at",
	"published_at":  "p.published_at",
	"author":        "p.author",
	"legal_score":   "p.legal_score",
	"recruit_score": "p.recruit_score",
}

// List returns one page of persisted posts joined with their flags, plus
// the total count for the query.
func (s *SQLiteStore) List(ctx context.Context, q ListQuery) ([]*domain.PersistedPost, int, error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}

	where := `WHERE 1=1`
	args := []any{}
	if !q.IncludeDeleted {
		where += ` AND COALESCE(f.is_deleted, 0) = 0`
	}
	if q.Search != "" {
		where += ` AND (p.text LIKE ? OR p.author LIKE ? OR p.company LIKE ?)`
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	order, ok := sortFields[q.SortField]
	if !ok {
		order = "p.collected_at"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM posts p LEFT JOIN post_flags f ON f.post_id = p.id ` + where
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.author, p.company, p.text, p.published_at, p.source_keyword,
		       p.collected_at, COALESCE(p.permalink, '') AS permalink,
		       COALESCE(p.content_hash, '') AS content_hash,
		       p.legal_score, p.recruit_score, p.created_at,
		       COALESCE(f.is_favorite, 0) AS is_favorite,
		       COALESCE(f.is_deleted, 0) AS is_deleted
		FROM posts p
		LEFT JOIN post_flags f ON f.post_id = p.id
		%s
		ORDER BY %s %s
		LIMIT ? OFFSET ?`, where, order, direction)
	args = append(args, q.Limit, q.Offset)

	var posts []*domain.PersistedPost
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return posts, total, nil
}

// SetFavorite toggles the dashboard-owned favorite flag.
func (s *SQLiteStore) SetFavorite(ctx context.Context, postID string, favorite bool) error {
	return s.upsertFlag(ctx, postID, "is_favorite", favorite)
}

// SetDeleted toggles the dashboard-owned soft-delete flag.
func (s *SQLiteStore) SetDeleted(ctx context.Context, postID string, deleted bool) error {
	return s.upsertFlag(ctx, postID, "is_deleted", deleted)
}

func (s *SQLiteStore) upsertFlag(ctx context.Context, postID, column string, value bool) error {
	var exists int
	if err := s.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM posts WHERE id = ?`, postID); err != nil {
		return fmt.Errorf("look up post: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}

	query := fmt.Sprintf(`
		INSERT INTO post_flags (post_id, %s, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(post_id) DO UPDATE SET %s = excluded.%s, updated_at = CURRENT_TIMESTAMP`,
		column, column, column)
	if _, err := s.db.ExecContext(ctx, query, postID, value); err != nil {
		return fmt.Errorf("update %s flag: %w", column, err)
	}
	return nil
}

// CountAcceptedSince counts posts collected at or after the cutoff, used
// by status reporting.
func (s *SQLiteStore) CountAcceptedSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM posts WHERE collected_at >= ?`, cutoff); err != nil {
		return 0, fmt.Errorf("count recent posts: %w", err)
	}
	return count, nil
}
