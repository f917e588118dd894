package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airquality-dashboard/internal/app"
	"airquality-dashboard/internal/config"
	"airquality-dashboard/internal/logging"
)

const appName = "airquality-dashboard"

// version is "dev" unless set with -ldflags "-X main.version=..."
var version = "dev"

const usage = `usage: airquality-dashboard [command]

commands:
  serve         run the dashboard (default)
  migrate       apply database migrations and exit
  import <csv>  load a CSV file into the observation store
  replay <csv> [interval]
                publish CSV rows to MQTT, optionally pausing between rows
`

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"command", command,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	switch command {
	case "serve":
		err = app.Run(ctx, cfg, logger)
	case "migrate":
		err = app.Migrate(ctx, cfg, logger)
	case "import":
		if len(args) != 1 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = app.Import(ctx, cfg, logger, args[0])
	case "replay":
		if len(args) < 1 || len(args) > 2 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		var interval time.Duration
		if len(args) == 2 {
			if interval, err = time.ParseDuration(args[1]); err != nil {
				fmt.Fprintf(os.Stderr, "invalid interval %q: %v\n", args[1], err)
				os.Exit(2)
			}
		}
		err = app.Replay(ctx, cfg, logger, args[0], interval)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "command", command, "err", err)
		stop()
		os.Exit(1)
	}

	logger.Info("shutting down")
}
