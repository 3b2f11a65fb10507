package app

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/cli"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/globaltime"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/settings"
)

func runRetention(args []string) int {
	fs := flag.NewFlagSet("retention", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	tenantSlug := fs.String("tenant", "", "Tenant slug (default: all tenants)")
	days := fs.Int("days", 0, "Retention window in days (default: RETENTION_DAYS)")
	dryRun := fs.Bool("dry-run", false, "Report what would be removed without touching anything")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel, cfg, pool, err := connectPool(5*time.Minute, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	var tenants []db.Tenant
	if *tenantSlug != "" {
		tenant, err := resolveTenantArg(ctx, pool, *tenantSlug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		tenants = []db.Tenant{*tenant}
	} else {
		tenants, err = db.ListTenants(ctx, pool)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	verb := "removed"
	if *dryRun {
		verb = "would remove"
	}
	for _, tenant := range tenants {
		// Explicit --days wins; otherwise the tenant's retention_days
		// setting overrides the deployment default.
		retentionDays := *days
		if retentionDays <= 0 {
			retentionDays, err = settings.RetentionDays(ctx, pool, tenant.TenantID, cfg.RetentionDays)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: retention setting for tenant %s: %v\n", tenant.Slug, err)
				return 1
			}
		}
		cutoff := globaltime.UTC().AddDate(0, 0, -retentionDays)

		report, err := db.RunRetention(ctx, pool, tenant.TenantID, cutoff, *dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: retention for tenant %s: %v\n", tenant.Slug, err)
			return 1
		}
		fmt.Printf("%s: %s %d items, %d clusters, %d usage rows (cutoff %s)\n",
			tenant.Slug, verb, report.Items, report.Clusters, report.AIUsageRows,
			report.Cutoff.Format(time.RFC3339))
	}
	return 0
}
