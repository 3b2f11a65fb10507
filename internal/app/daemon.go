package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/cli"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := db.NewPool(connectCtx, cfg)
	connectCancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ingest, err := newPipeline(cfg, pool, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Dur("poll_interval", cfg.PollInterval).
		Int("workers", cfg.PollWorkers).
		Msg("daemon started")

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	// First pass immediately, then on the ticker.
	for {
		if _, err := ingest.PollDueSources(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error().Err(err).Msg("poll pass failed")
		}
		if err := evaluateDigestTriggers(ctx, cfg, pool, logger); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error().Err(err).Msg("digest trigger pass failed")
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("daemon stopping")
			return 0
		case <-ticker.C:
		}
	}

	logger.Info().Msg("daemon stopping")
	return 0
}
