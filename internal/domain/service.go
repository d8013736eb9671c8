package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default feed composition and lifecycle parameters.
const (
	DefaultTTL           = 24 * time.Hour
	DefaultTrendingLimit = 5
	DefaultRandomLimit   = 15
)

// Options tunes a BubbleService. Zero values fall back to defaults, so
// callers only set what they need.
type Options struct {
	// TTL is the time from creation to expiry for new posts.
	TTL time.Duration

	// TrendingLimit caps the top-by-impressions slice of the feed.
	TrendingLimit int

	// RandomLimit caps the random discovery slice of the feed.
	RandomLimit int

	// Now overrides the clock, for tests.
	Now func() time.Time

	// Rand overrides the sampling source, for tests. The service guards it
	// with a mutex, so a plain rand.New(rand.NewSource(seed)) is fine.
	Rand *rand.Rand
}

// BubbleService is the core domain service. It owns the business logic for
// accepting uploads, composing the feed, and reaping expired posts. It holds
// no mutable state beyond its sampling source; everything else lives in the
// repository, so concurrent requests never interfere.
type BubbleService struct {
	repo  PostRepository
	media MediaStore

	ttl           time.Duration
	trendingLimit int
	randomLimit   int

	now    func() time.Time
	rngMu  sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

// NewBubbleService creates a BubbleService backed by the given repository and
// media store.
func NewBubbleService(repo PostRepository, media MediaStore, opts Options, logger *slog.Logger) (*BubbleService, error) {
	if repo == nil {
		return nil, fmt.Errorf("post repository is required")
	}
	if media == nil {
		return nil, fmt.Errorf("media store is required")
	}

	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.TrendingLimit <= 0 {
		opts.TrendingLimit = DefaultTrendingLimit
	}
	if opts.RandomLimit <= 0 {
		opts.RandomLimit = DefaultRandomLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &BubbleService{
		repo:          repo,
		media:         media,
		ttl:           opts.TTL,
		trendingLimit: opts.TrendingLimit,
		randomLimit:   opts.RandomLimit,
		now:           opts.Now,
		rng:           opts.Rand,
		logger:        logger,
	}, nil
}

// ComposeFeed builds the bubble feed: the top trendingLimit live posts by
// impressions, blended with a fresh uniform sample of randomLimit live posts,
// de-duplicated by id and returned in shuffled order. The result never
// contains an expired post and never exceeds trendingLimit+randomLimit
// entries. Composing is read-only; it mutates nothing in the store.
func (s *BubbleService) ComposeFeed(ctx context.Context) ([]Post, error) {
	now := s.now()

	trending, err := s.repo.TrendingLive(ctx, KindBubble, now, s.trendingLimit)
	if err != nil {
		return nil, fmt.Errorf("trending query: %w: %w", ErrStorageUnavailable, err)
	}

	live, err := s.repo.ListLive(ctx, KindBubble, now)
	if err != nil {
		return nil, fmt.Errorf("live posts query: %w: %w", ErrStorageUnavailable, err)
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	sample := samplePosts(s.rng, live, s.randomLimit)

	seen := make(map[string]struct{}, len(trending)+len(sample))
	feed := make([]Post, 0, len(trending)+len(sample))
	for _, p := range trending {
		seen[p.ID] = struct{}{}
		feed = append(feed, p)
	}
	for _, p := range sample {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		feed = append(feed, p)
	}

	s.rng.Shuffle(len(feed), func(i, j int) {
		feed[i], feed[j] = feed[j], feed[i]
	})

	return feed, nil
}

// AudioFeed returns all live legacy audio posts, newest first.
func (s *BubbleService) AudioFeed(ctx context.Context) ([]Post, error) {
	posts, err := s.repo.ListLive(ctx, KindAudio, s.now())
	if err != nil {
		return nil, fmt.Errorf("audio feed query: %w: %w", ErrStorageUnavailable, err)
	}
	return posts, nil
}

// CreateBubble validates an upload, stores the binary with the media host,
// and persists a new bubble post with a fresh TTL.
func (s *BubbleService) CreateBubble(ctx context.Context, up Upload) (*Post, error) {
	return s.createPost(ctx, KindBubble, up)
}

// CreateAudioPost is CreateBubble for the legacy audio surface. It carries
// the extra username field and defaults it like the old clients expect.
func (s *BubbleService) CreateAudioPost(ctx context.Context, up Upload) (*Post, error) {
	if up.Username == "" {
		up.Username = "anonymous"
	}
	return s.createPost(ctx, KindAudio, up)
}

func (s *BubbleService) createPost(ctx context.Context, kind string, up Upload) (*Post, error) {
	if err := up.Validate(); err != nil {
		return nil, err
	}
	if !s.media.Configured() {
		return nil, ErrNotConfigured
	}

	audioURL, err := s.media.Upload(ctx, up.MimeType, up.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	createdAt := s.now().UTC()
	post := &Post{
		ID:          uuid.NewString(),
		Kind:        kind,
		AudioURL:    audioURL,
		AnonymousID: up.AnonymousID,
		Username:    up.Username,
		Avatar:      up.Avatar,
		Duration:    clampDuration(up.Duration),
		CreatedAt:   createdAt,
		ExpiryAt:    createdAt.Add(s.ttl),
	}

	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w: %w", ErrStorageUnavailable, err)
	}

	s.logger.Info("post created", "id", post.ID, "kind", kind, "expiryAt", post.ExpiryAt)
	return post, nil
}

// RecordImpression acknowledges a view event for a post. The event is
// accepted as fire-and-forget telemetry.
//
// TODO: persist the increment with an atomic
// `UPDATE posts SET impressions = impressions + 1` once the clients send
// stable post ids with their view events; until then trending rank only
// moves for rows seeded with nonzero counts.
func (s *BubbleService) RecordImpression(postID string) {
	s.logger.Debug("impression received", "id", postID)
}

// ReapExpired deletes every post whose expiry has passed as of now. It
// returns the number of posts removed; zero is a normal, silent outcome.
// Running it twice back to back with no new expirations deletes nothing the
// second time.
func (s *BubbleService) ReapExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC()
	deleted, err := s.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired posts: %w: %w", ErrStorageUnavailable, err)
	}
	if deleted > 0 {
		s.logger.Info("reaped expired posts", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// samplePosts draws up to k posts uniformly without replacement. The caller
// holds the rng mutex.
func samplePosts(rng *rand.Rand, posts []Post, k int) []Post {
	out := make([]Post, len(posts))
	copy(out, posts)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
