package domain

import (
	"context"
	"time"
)

// PostRepository defines persistence operations for audio posts.
type PostRepository interface {
	// CreatePost inserts a new post into the store.
	CreatePost(ctx context.Context, post *Post) error

	// TrendingLive returns up to limit live posts ordered by impressions
	// descending. Ties break by insertion order (oldest first), so rankings
	// are stable across calls.
	TrendingLive(ctx context.Context, kind string, now time.Time, limit int) ([]Post, error)

	// ListLive returns all live posts of the given kind, newest first.
	ListLive(ctx context.Context, kind string, now time.Time) ([]Post, error)

	// DeleteExpired removes every post with expiryAt <= cutoff, across all
	// kinds, and returns the number of rows deleted. The delete is a single
	// bulk statement so a run is atomic over its matched set.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// MediaStore uploads audio binaries to an external media host and returns a
// durable URL for the stored object.
type MediaStore interface {
	// Upload stores the payload and returns its public URL.
	Upload(ctx context.Context, mimeType string, data []byte) (string, error)

	// Configured reports whether the media host credentials are present.
	// Uploads fail fast with ErrNotConfigured when they are not.
	Configured() bool
}
