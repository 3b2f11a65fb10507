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
	"github.com/CodesWhat/rss-wrangler-sub003/internal/httpapi"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/logging"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	host := fs.String("host", "0.0.0.0", "Listen address")
	port := fs.Int("port", 8090, "Listen port")
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

	digests, err := newDigestService(cfg, pool, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	server := httpapi.NewServer(pool, digests, logging.WithComponent(logger, "api"), httpapi.Options{
		Host: *host,
		Port: *port,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return 1
	}
	return 0
}
