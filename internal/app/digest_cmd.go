package app

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/cli"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/digest"
)

func runDigest(args []string) int {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	tenantSlug := fs.String("tenant", "", "Tenant slug (required)")
	auto := fs.Bool("auto", false, "Apply the automatic triggers instead of forcing generation")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *tenantSlug == "" {
		fmt.Fprintln(os.Stderr, "Error: --tenant is required")
		return 2
	}

	ctx, cancel, cfg, pool, err := connectPool(2*time.Minute, envLoader)
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

	digests, err := newDigestService(cfg, pool, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	tenant, err := resolveTenantArg(ctx, pool, *tenantSlug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var result *digest.Result
	if *auto {
		result, err = digests.MaybeGenerate(ctx, tenant.TenantID)
	} else {
		result, err = digests.Generate(ctx, tenant.TenantID, digest.TriggerManual)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if result == nil {
		fmt.Println("nothing to digest")
		return 0
	}

	fmt.Print(result.Markdown)
	fmt.Fprintf(os.Stderr, "digest %d generated (trigger: %s, %d clusters)\n",
		result.DigestID, result.Trigger, len(result.Entries))
	return 0
}
