package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blackmichael/bubble-server/internal/domain"
	_ "modernc.org/sqlite"
)

// schema holds the unified posts table. The old deployment kept bubbles and
// legacy audio posts in two near-identical collections; here they share one
// table tagged by kind. Timestamps are stored as unix milliseconds so expiry
// comparisons are plain integer comparisons.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	audio_url    TEXT NOT NULL,
	anonymous_id TEXT NOT NULL DEFAULT '',
	username     TEXT NOT NULL DEFAULT '',
	avatar       TEXT NOT NULL DEFAULT '',
	duration     REAL NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	expiry_at    INTEGER NOT NULL,
	impressions  INTEGER NOT NULL DEFAULT 0,
	likes        INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_posts_expiry ON posts (expiry_at);
CREATE INDEX IF NOT EXISTS idx_posts_kind_expiry ON posts (kind, expiry_at);
`

// Repository implements domain.PostRepository using SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) the database at path, verifies the
// connection, and bootstraps the schema. The caller should call Close when
// the repository is no longer needed.
//
// Uploads and reaper passes write concurrently, so the database is opened in
// WAL mode with a busy timeout: a writer that finds the write lock held waits
// instead of failing with SQLITE_BUSY.
func NewRepository(path string) (*Repository, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreatePost inserts a new post.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (id, kind, audio_url, anonymous_id, username, avatar,
			duration, created_at, expiry_at, impressions, likes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.Kind,
		post.AudioURL,
		post.AnonymousID,
		post.Username,
		post.Avatar,
		post.Duration,
		post.CreatedAt.UnixMilli(),
		post.ExpiryAt.UnixMilli(),
		post.Impressions,
		post.Likes,
	)
	return err
}

// TrendingLive returns up to limit live posts of the given kind ordered by
// impressions descending. Ties break by rowid ascending, which is insertion
// order, so rankings stay stable between calls.
func (r *Repository) TrendingLive(ctx context.Context, kind string, now time.Time, limit int) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE kind = ? AND expiry_at > ?
		ORDER BY impressions DESC, rowid ASC
		LIMIT ?`,
		kind, now.UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query trending posts (kind=%s, limit=%d): %w", kind, limit, err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ListLive returns all live posts of the given kind, newest first.
func (r *Repository) ListLive(ctx context.Context, kind string, now time.Time) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE kind = ? AND expiry_at > ?
		ORDER BY created_at DESC, rowid DESC`,
		kind, now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("query live posts (kind=%s): %w", kind, err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// DeleteExpired removes every post with expiry_at <= cutoff, across all
// kinds, in a single statement. Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE expiry_at <= ?`,
		cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired posts: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted posts: %w", err)
	}
	return deleted, nil
}

const postColumns = `id, kind, audio_url, anonymous_id, username, avatar,
	duration, created_at, expiry_at, impressions, likes`

func scanPosts(rows *sql.Rows) ([]domain.Post, error) {
	var posts []domain.Post
	for rows.Next() {
		var (
			p                  domain.Post
			createdMs, expryMs int64
		)
		err := rows.Scan(
			&p.ID,
			&p.Kind,
			&p.AudioURL,
			&p.AnonymousID,
			&p.Username,
			&p.Avatar,
			&p.Duration,
			&createdMs,
			&expryMs,
			&p.Impressions,
			&p.Likes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CreatedAt = time.UnixMilli(createdMs).UTC()
		p.ExpiryAt = time.UnixMilli(expryMs).UTC()
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}
