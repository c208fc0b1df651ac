package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/fancontrol/cmd"
	"github.com/anicoll/fancontrol/internal/pkg/lifecycle"
)

const (
	exitConfig           = 1
	exitMandatoryMissing = 2
	exitMandatoryLost    = 3
)

func main() {
	app := &cli.App{
		Name:   "fancontrol",
		Usage:  "rule based fan control for hwmon devices",
		Action: cmd.FanControlCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				EnvVars:  []string{"FANCONTROL_CONFIG"},
				Usage:    "thermal program file",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				EnvVars: []string{"FANCONTROL_DRY_RUN"},
				Usage:   "log output writes instead of performing them",
				Value:   false,
			},
			&cli.DurationFlag{
				Name:    "tick-interval",
				EnvVars: []string{"TICK_INTERVAL"},
				Value:   time.Second,
			},
			&cli.DurationFlag{
				Name:    "discovery-timeout",
				EnvVars: []string{"DISCOVERY_TIMEOUT"},
				Usage:   "how long to wait for mandatory devices at startup",
				Value:   10 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
			&cli.StringFlag{
				Name:    "log-format",
				EnvVars: []string{"LOG_FORMAT"},
				Usage:   "json or console",
				Value:   "json",
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Print(err)
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var exit cli.ExitCoder
	switch {
	case errors.Is(err, lifecycle.ErrMandatoryMissing):
		return exitMandatoryMissing
	case errors.Is(err, lifecycle.ErrMandatoryLost):
		return exitMandatoryLost
	case errors.As(err, &exit):
		return exit.ExitCode()
	}
	return exitConfig
}
