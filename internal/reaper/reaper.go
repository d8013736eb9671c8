// Package reaper schedules the recurring deletion of expired posts.
package reaper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/blackmichael/bubble-server/internal/domain"
	"github.com/blackmichael/bubble-server/internal/metrics"
)

// DefaultSchedule fires at the top of every hour.
const DefaultSchedule = "0 * * * *"

// Reaper runs the expiry pass on a cron schedule. Runs never overlap: if a
// pass is still in flight when the next tick fires, that tick is skipped.
// Failures are logged and swallowed until the next tick.
type Reaper struct {
	service  *domain.BubbleService
	schedule string
	logger   *slog.Logger
}

// New creates a Reaper with the given cron schedule. An empty schedule uses
// DefaultSchedule.
func New(service *domain.BubbleService, schedule string, logger *slog.Logger) *Reaper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Reaper{
		service:  service,
		schedule: schedule,
		logger:   logger,
	}
}

// Start runs one pass immediately (to catch expirations accrued while the
// server was down), then follows the cron schedule. It blocks until ctx is
// cancelled.
func (r *Reaper) Start(ctx context.Context) error {
	// The startup pass runs through the same single-flight guard as the
	// scheduled ones, so a slow startup pass cannot overlap the first tick.
	job := cron.NewChain(
		cron.SkipIfStillRunning(cronLogger{r.logger}),
	).Then(cron.FuncJob(func() { r.run(ctx) }))

	c := cron.New()
	if _, err := c.AddJob(r.schedule, job); err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", r.schedule, err)
	}

	job.Run()
	c.Start()
	r.logger.Info("reaper scheduled", "schedule", r.schedule)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

func (r *Reaper) run(ctx context.Context) {
	deleted, err := r.service.ReapExpired(ctx)
	if err != nil {
		r.logger.Error("reaper run failed", "error", err)
		metrics.ReaperRuns.WithLabelValues("error").Inc()
		return
	}
	metrics.ReaperRuns.WithLabelValues("ok").Inc()
	metrics.ReapedPosts.Add(float64(deleted))
}

// cronLogger adapts slog to the cron.Logger interface so skipped ticks show
// up in the server logs.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
