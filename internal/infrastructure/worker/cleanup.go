// Package worker runs periodic maintenance jobs.
package worker

import (
	"context"
	"time"

	"bizdesk/pkg/logger"
)

// Cleaner deletes expired records and reports how many were removed.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Cleanup calls a Cleaner on a fixed interval until its context ends.
type Cleanup struct {
	name     string
	cleaner  Cleaner
	interval time.Duration
	log      *logger.Logger
}

// NewCleanup creates a cleanup job. A non-positive interval defaults to one hour.
func NewCleanup(name string, cleaner Cleaner, interval time.Duration, log *logger.Logger) *Cleanup {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = logger.Default()
	}
	return &Cleanup{
		name:     name,
		cleaner:  cleaner,
		interval: interval,
		log:      log.WithComponent("worker").With("job", name),
	}
}

// Run blocks, cleaning once per interval, and returns when ctx is done.
func (c *Cleanup) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Infow("cleanup job started", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			c.log.Infow("cleanup job stopped")
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass.
func (c *Cleanup) RunOnce(ctx context.Context) int64 {
	n, err := c.cleaner.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Errorw("cleanup failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		c.log.Infow("cleaned up expired records", "count", n)
	}
	return n
}
