package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Loop schedules RunCycle on a fixed cadence. Cycles never overlap; if one
// runs long the next tick is skipped.
type Loop struct {
	rec    *Reconciler
	cron   *cron.Cron
	logger *zap.Logger
}

// NewLoop wraps a reconciler in a cron schedule.
func NewLoop(rec *Reconciler, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{rec: rec, logger: logger}
}

// Start begins the cycle schedule. The first cycle runs after the configured
// initial delay so the HTTP server comes up before any provider traffic.
func (l *Loop) Start(ctx context.Context) error {
	every := l.rec.cfg.PollSeconds
	if every < 10 {
		every = 10
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))
	_, err := c.AddFunc(fmt.Sprintf("@every %ds", every), func() {
		l.rec.RunCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule reconcile cycle: %w", err)
	}

	go func() {
		delay := time.Duration(l.rec.cfg.InitialDelaySec) * time.Second
		select {
		case <-time.After(delay):
			l.rec.RunCycle(ctx)
		case <-ctx.Done():
			return
		}
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
	}()

	l.logger.Info("reconcile loop started", zap.Int("every_sec", every))
	return nil
}
