package cmd

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/config"
	"github.com/anicoll/fancontrol/internal/pkg/contxt"
	"github.com/anicoll/fancontrol/internal/pkg/model"
)

const cleanupTimeout = time.Minute

type cleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// statusSummary keeps the latest tick report for the periodic status log.
type statusSummary struct {
	latest atomic.Pointer[model.TickReport]
}

func (s *statusSummary) Report(report *model.TickReport) {
	s.latest.Store(report)
}

func (s *statusSummary) log() {
	report := s.latest.Load()
	if report == nil {
		return
	}
	zap.L().Info("device status",
		zap.Strings("online", report.Online),
		zap.Strings("offline", report.Offline),
		zap.Strings("triggered", report.Triggered),
		zap.Int("outputs", len(report.AppliedOutputs())))
}

func cronStatusSummary(ctx context.Context, schedule string, summary *statusSummary) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, summary.log); err != nil {
		return fmt.Errorf("invalid status report schedule %q: %w", schedule, err)
	}
	return runCron(ctx, c)
}

func cronDbCleanup(ctx context.Context, db cleaner, cfg config.DatabaseConfig) error {
	cleanup := func() {
		cctx, cancel := contxt.WithTimeout(cleanupTimeout)
		defer cancel()
		deleted, err := db.Cleanup(cctx, cfg.Retention)
		if err != nil {
			zap.L().Error("error cleaning up database", zap.Error(err))
			return
		}
		zap.L().Info("database cleanup finished", zap.Int64("deleted", deleted), zap.Duration("retention", cfg.Retention))
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.CleanupSchedule, cleanup); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", cfg.CleanupSchedule, err)
	}
	cleanup()
	return runCron(ctx, c)
}

// runCron runs c until ctx is done, then waits for running jobs.
func runCron(ctx context.Context, c *cron.Cron) error {
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
