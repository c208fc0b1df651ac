// Package controller runs the fixed-period control loop.
package controller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/lifecycle"
	"github.com/anicoll/fancontrol/internal/pkg/model"
)

type hotplug interface {
	Poll(ctx context.Context, timeout time.Duration) error
	CheckMandatory() error
}

type engine interface {
	Tick() *model.TickReport
}

// Reporter receives every tick report. It runs inside the loop and must not block.
type Reporter interface {
	Report(report *model.TickReport)
}

type ReporterFunc func(report *model.TickReport)

func (f ReporterFunc) Report(report *model.TickReport) { f(report) }

type controller struct {
	interval  time.Duration
	hotplug   hotplug
	engine    engine
	reporters []Reporter
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func New(interval time.Duration, hp hotplug, eng engine, reporters ...Reporter) *controller {
	return &controller{
		interval:  interval,
		hotplug:   hp,
		engine:    eng,
		reporters: reporters,
		logger:    zap.L(),
		sleep:     sleep,
	}
}

// Run ticks until ctx is cancelled, which returns nil, or until a mandatory
// device is lost. Cancellation is only observed between ticks.
func (c *controller) Run(ctx context.Context) error {
	c.logger.Info("control loop started", zap.Duration("interval", c.interval))
	for {
		if ctx.Err() != nil {
			c.logger.Info("control loop stopped")
			return nil
		}

		if err := c.hotplug.Poll(ctx, 0); err != nil {
			c.logger.Error("hot-plug poll failed", zap.Error(err))
		}
		if err := c.hotplug.CheckMandatory(); err != nil {
			var mandatory *lifecycle.MandatoryError
			if errors.As(err, &mandatory) {
				c.logger.Error("mandatory device unplugged", zap.Strings("devices", mandatory.Devices))
			}
			return err
		}

		report := c.engine.Tick()
		for _, r := range c.reporters {
			r.Report(report)
		}

		if err := c.sleep(ctx, c.interval-report.Duration); err != nil {
			c.logger.Info("control loop stopped")
			return nil
		}
	}
}

// sleep waits d, floored at zero, or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
