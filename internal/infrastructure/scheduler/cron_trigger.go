package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SweepFunc is a scheduled sweep entry point
type SweepFunc func(ctx context.Context) error

// CronTrigger drives the periodic billing sweeps on cron schedules.
// Each registered sweep is guarded so an invocation that is still running
// when the next tick fires is skipped instead of overlapped.
type CronTrigger struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu        sync.Mutex
	isRunning bool
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(logger *zap.Logger) *CronTrigger {
	return &CronTrigger{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddSweep registers a sweep under the given cron spec (standard 5-field
// format, e.g. "0 2 * * *"). Returns an error for an invalid spec.
func (c *CronTrigger) AddSweep(spec, name string, run SweepFunc) error {
	var guard sync.Mutex

	_, err := c.cron.AddFunc(spec, func() {
		if !guard.TryLock() {
			c.logger.Warn("Skipping sweep, previous run still in progress",
				zap.String("sweep", name),
			)
			return
		}
		defer guard.Unlock()

		start := time.Now()
		c.logger.Info("Sweep started", zap.String("sweep", name))

		if err := run(context.Background()); err != nil {
			c.logger.Error("Sweep failed",
				zap.String("sweep", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return
		}

		c.logger.Info("Sweep completed",
			zap.String("sweep", name),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
	if err != nil {
		return err
	}

	c.logger.Info("Sweep scheduled",
		zap.String("sweep", name),
		zap.String("spec", spec),
	)
	return nil
}

// Start starts the cron scheduler
func (c *CronTrigger) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return
	}
	c.isRunning = true
	c.cron.Start()
	c.logger.Info("Cron trigger started")
}

// Stop stops the cron scheduler and waits for running sweeps to finish,
// bounded by the given context
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	done := c.cron.Stop()
	select {
	case <-done.Done():
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
