// Command fetchd runs the scheduled fetch loop over the configured jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SaitoAtsushi/thin-http/internal/app"
	"github.com/SaitoAtsushi/thin-http/internal/config"
	"github.com/SaitoAtsushi/thin-http/internal/logger"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fetchd start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("fetchd", pflag.ExitOnError)
	fs.String("jobs", "", "jobs manifest (YAML or JSON)")
	fs.String("publishers", "", "publishers file (YAML or JSON)")
	fs.Int64("interval", 0, "seconds between fetch passes")
	fs.String("storage", "", "ledger storage: bbolt or none")
	fs.String("bbolt-path", "", "bbolt ledger file")
	fs.String("backend", "", "backend: resty or wininet")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("fetchd starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewRunner(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize runner", "error", err)
		return err
	}

	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("runner run: %w", err)
	}
	return nil
}
