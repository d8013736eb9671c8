package reaper

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/bubble-server/internal/domain"
)

type countingRepo struct {
	mu      sync.Mutex
	posts   []domain.Post
	deletes int
}

func (r *countingRepo) CreatePost(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, *post)
	return nil
}

func (r *countingRepo) TrendingLive(_ context.Context, _ string, _ time.Time, _ int) ([]domain.Post, error) {
	return nil, nil
}

func (r *countingRepo) ListLive(_ context.Context, _ string, _ time.Time) ([]domain.Post, error) {
	return nil, nil
}

func (r *countingRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	var kept []domain.Post
	var deleted int64
	for _, p := range r.posts {
		if p.ExpiryAt.After(cutoff) {
			kept = append(kept, p)
		} else {
			deleted++
		}
	}
	r.posts = kept
	return deleted, nil
}

func (r *countingRepo) deleteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deletes
}

type noopMedia struct{}

func (noopMedia) Upload(context.Context, string, []byte) (string, error) { return "", nil }
func (noopMedia) Configured() bool                                       { return false }

func newService(t *testing.T, repo domain.PostRepository) *domain.BubbleService {
	t.Helper()
	svc, err := domain.NewBubbleService(repo, noopMedia{}, domain.Options{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return svc
}

func TestNew_DefaultSchedule(t *testing.T) {
	r := New(newService(t, &countingRepo{}), "", slog.New(slog.DiscardHandler))
	assert.Equal(t, DefaultSchedule, r.schedule)
}

func TestStart_RunsImmediately(t *testing.T) {
	now := time.Now()
	repo := &countingRepo{posts: []domain.Post{
		{ID: "expired", Kind: domain.KindBubble, ExpiryAt: now.Add(-time.Hour)},
		{ID: "live", Kind: domain.KindBubble, ExpiryAt: now.Add(time.Hour)},
	}}
	r := New(newService(t, repo), DefaultSchedule, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	require.Eventually(t, func() bool {
		return repo.deleteCount() == 1
	}, time.Second, 10*time.Millisecond, "reaper must run a pass on start")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.posts, 1)
	assert.Equal(t, "live", repo.posts[0].ID)
}

// gatedRepo blocks every DeleteExpired on a token from gate, so a pass can be
// held in flight across ticks.
type gatedRepo struct {
	countingRepo
	gate chan struct{}
}

func (r *gatedRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.countingRepo.DeleteExpired(ctx, cutoff)
	<-r.gate
	return n, err
}

func TestStart_SkipsTickWhileRunStillInFlight(t *testing.T) {
	repo := &gatedRepo{gate: make(chan struct{}, 1)}
	// One token so the startup pass finishes promptly and scheduling begins.
	repo.gate <- struct{}{}

	r := New(newService(t, repo), "@every 50ms", slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	require.Eventually(t, func() bool {
		return repo.deleteCount() == 1
	}, time.Second, 5*time.Millisecond, "startup pass must run")

	// The next tick starts a pass that blocks on the gate. Every following
	// tick must be skipped, not run alongside it.
	require.Eventually(t, func() bool {
		return repo.deleteCount() == 2
	}, time.Second, 5*time.Millisecond, "first scheduled pass must start")

	time.Sleep(300 * time.Millisecond) // several ticks fire while blocked
	assert.Equal(t, 2, repo.deleteCount(), "ticks during an in-flight pass must be skipped")

	close(repo.gate)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	r := New(newService(t, &countingRepo{}), "not a cron spec", slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := r.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reaper schedule")
}
