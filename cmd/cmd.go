package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/fancontrol/internal/pkg/checker"
	"github.com/anicoll/fancontrol/internal/pkg/conffile"
	"github.com/anicoll/fancontrol/internal/pkg/config"
	"github.com/anicoll/fancontrol/internal/pkg/contxt"
	"github.com/anicoll/fancontrol/internal/pkg/controller"
	"github.com/anicoll/fancontrol/internal/pkg/device"
	"github.com/anicoll/fancontrol/internal/pkg/lifecycle"
	"github.com/anicoll/fancontrol/internal/pkg/logic"
	"github.com/anicoll/fancontrol/internal/pkg/metrics"
	"github.com/anicoll/fancontrol/internal/pkg/program"
	"github.com/anicoll/fancontrol/internal/pkg/publisher"
	"github.com/anicoll/fancontrol/internal/pkg/server"
	"github.com/anicoll/fancontrol/internal/pkg/udev"
	"github.com/anicoll/fancontrol/pkg/sockets"
)

const publishBuffer = 16

type deps struct {
	registry *device.Registry
	hardware func() (Hardware, error)
}

func defaultDeps() deps {
	return deps{
		registry: device.DefaultRegistry(),
		hardware: func() (Hardware, error) {
			m, err := udev.NewMonitor(udev.NewEnumerator())
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	}
}

// FanControlCommand is the entry point of the fancontrol CLI command.
func FanControlCommand(c *cli.Context) error {
	integrations, err := config.LoadIntegrations()
	if err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	cfg := &config.Config{
		ProgramFile:      c.String("config"),
		DryRun:           c.Bool("dry-run"),
		TickInterval:     c.Duration("tick-interval"),
		DiscoveryTimeout: c.Duration("discovery-timeout"),
		LogLevel:         c.String("log-level"),
		LogFormat:        c.String("log-format"),
		Integrations:     integrations,
	}
	return run(c.Context, cfg, defaultDeps())
}

func run(ctx context.Context, cfg *config.Config, d deps) error {
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	prog, err := loadProgram(cfg.ProgramFile)
	if err != nil {
		logger.Error("invalid thermal program", zap.String("file", cfg.ProgramFile), zap.Error(err))
		return err
	}
	logger.Info("thermal program loaded",
		zap.String("file", cfg.ProgramFile),
		zap.Int("devices", len(prog.Devices())),
		zap.Int("rules", len(prog.Rules)),
		zap.Bool("dry_run", cfg.DryRun))

	hw, err := d.hardware()
	if err != nil {
		return fmt.Errorf("failed to open hot-plug source: %w", err)
	}
	defer hw.Close()

	manager := lifecycle.New(prog.Devices(), hw, d.registry, cfg.DryRun)
	if err := manager.ValidateDrivers(); err != nil {
		logger.Error("invalid driver", zap.Error(err), zap.Strings("known", d.registry.IDs()))
		return err
	}
	if err := manager.Discover(); err != nil {
		return err
	}
	if err := manager.WaitMandatory(ctx, cfg.DiscoveryTimeout); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Error("mandatory devices missing", zap.Error(err))
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	stats := metrics.New()
	summary := &statusSummary{}
	reporters := []controller.Reporter{stats, summary}

	pub := publisher.New(publishBuffer)
	sinks := setupSinks(ctx, cfg.Integrations, pub)
	defer sinks.close()
	if pub.Len() > 0 {
		pub.RegisterEntities(ctx, entities(prog))
		reporters = append(reporters, pub)
		eg.Go(func() error {
			return pub.Run(ctx)
		})
	}

	if cfg.StatusCfg.Enabled() {
		hub := sockets.New(sockets.OnError(func(err error) {
			logger.Debug("websocket client error", zap.Error(err))
		}))
		srv := server.New(hub, stats.Registry(), sinks.history())
		reporters = append(reporters, srv)
		eg.Go(func() error {
			return serveStatus(ctx, cfg.StatusCfg.Addr, srv.Handler(), hub)
		})
	}

	if cfg.StatusCfg.ReportSchedule != "" {
		eg.Go(func() error {
			return cronStatusSummary(ctx, cfg.StatusCfg.ReportSchedule, summary)
		})
	}
	if sinks.db != nil {
		eg.Go(func() error {
			return cronDbCleanup(ctx, sinks.db, cfg.DatabaseCfg)
		})
	}

	engine := logic.NewLogicSvc(prog, manager)
	loop := controller.New(cfg.TickInterval, manager, engine, reporters...)
	eg.Go(func() error {
		return loop.Run(ctx)
	})

	return eg.Wait()
}

func newLogger(level, format string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	if format == "console" {
		logCfg = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = lvl
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func loadProgram(path string) (*program.ThermalProgram, error) {
	tree, err := conffile.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return checker.Check(tree)
}

func serveStatus(ctx context.Context, addr string, handler http.Handler, hub *sockets.Hub) error {
	srv := &http.Server{
		Handler:      handler,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := contxt.WithTimeout(5 * time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = hub.Close()
	}()

	zap.L().Info("status server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
