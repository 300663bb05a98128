// Package replay serves catch-up requests from the persisted feed history.
package replay

import (
	"context"
	"log/slog"
	"time"

	"github.com/Twirlie/discordbot/internal/eventbus"
	"github.com/Twirlie/discordbot/internal/metrics"
)

const (
	DefaultMaxCount = 100
	DefaultDelay    = 100 * time.Millisecond
)

// Loader reads the n most recent events, oldest first.
type Loader interface {
	LoadRecent(ctx context.Context, n int) ([]eventbus.Event, error)
}

// Coordinator answers "last N events" requests. Its zero value for MaxCount
// and Delay uses the package defaults; a negative Delay disables pacing.
type Coordinator struct {
	Store    Loader
	MaxCount int
	Delay    time.Duration
	Logger   *slog.Logger
}

func NewCoordinator(store Loader, maxCount int, delay time.Duration, logger *slog.Logger) *Coordinator {
	return &Coordinator{Store: store, MaxCount: maxCount, Delay: delay, Logger: logger}
}

// Clamp bounds a requested count to [0, MaxCount].
func (c *Coordinator) Clamp(count int64) int {
	maxCount := c.MaxCount
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	if count <= 0 {
		return 0
	}
	if count > int64(maxCount) {
		return maxCount
	}
	return int(count)
}

// Replay returns up to count recent events, oldest first. Store failures are
// logged and yield no events.
//
// The pause before returning lets a freshly attached subscriber settle so the
// batch is less likely to land behind live events published meanwhile. It
// narrows that window; it does not close it.
func (c *Coordinator) Replay(ctx context.Context, count int64) []eventbus.Event {
	logger := c.logger()
	n := c.Clamp(count)
	if n == 0 || c.Store == nil {
		return nil
	}

	events, err := c.Store.LoadRecent(ctx, n)
	if err != nil {
		metrics.IncReplayFailed()
		logger.Error("replay load failed", "count", n, "err", err)
		return nil
	}
	if len(events) == 0 {
		return nil
	}

	if delay := c.delay(); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}

	metrics.IncReplayServed()
	logger.Debug("replaying recent events", "requested", count, "sent", len(events))
	return events
}

func (c *Coordinator) delay() time.Duration {
	if c.Delay == 0 {
		return DefaultDelay
	}
	return c.Delay
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
