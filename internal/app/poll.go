package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/cli"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/config"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
)

func runPoll(args []string) int {
	fs := flag.NewFlagSet("poll", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall deadline for the poll pass")
	skipDigests := fs.Bool("skip-digests", false, "Do not evaluate digest triggers after polling")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel, cfg, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ingest, err := newPipeline(cfg, pool, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	report, err := ingest.PollDueSources(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: poll pass failed: %v\n", err)
		return 1
	}

	if !*skipDigests {
		if err := evaluateDigestTriggers(ctx, cfg, pool, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	fmt.Printf("polled %d sources: %d ok (%d unchanged), %d failed, %d new items, %d clustered\n",
		report.SourcesDue, report.SourcesOK, report.NotModified, report.SourcesFailed, report.ItemsNew, report.Clustered)
	return 0
}

// evaluateDigestTriggers runs the automatic backlog/away checks for every
// tenant after a poll pass.
func evaluateDigestTriggers(ctx context.Context, cfg *config.Config, pool *db.Pool, logger zerolog.Logger) error {
	digests, err := newDigestService(cfg, pool, logger)
	if err != nil {
		return err
	}

	tenants, err := db.ListTenants(ctx, pool)
	if err != nil {
		return err
	}
	for _, tenant := range tenants {
		result, err := digests.MaybeGenerate(ctx, tenant.TenantID)
		if err != nil {
			logger.Error().Err(err).Str("tenant", tenant.Slug).Msg("digest trigger evaluation failed")
			continue
		}
		if result != nil {
			fmt.Printf("digest %d generated for tenant %s (trigger: %s, %d clusters)\n",
				result.DigestID, tenant.Slug, result.Trigger, len(result.Entries))
		}
	}
	return nil
}
