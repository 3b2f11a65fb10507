package app

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/cli"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/settings"
)

func runTenants(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: rollup tenants <add|list|set> [flags]")
		return 2
	}

	switch args[0] {
	case "add":
		return runTenantsAdd(args[1:])
	case "list":
		return runTenantsList(args[1:])
	case "set":
		return runTenantsSet(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown tenants subcommand: %s\n", args[0])
		return 2
	}
}

func runTenantsAdd(args []string) int {
	fs := flag.NewFlagSet("tenants add", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	slug := fs.String("slug", "", "Tenant slug (required)")
	name := fs.String("name", "", "Display name (default: slug)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *slug == "" {
		fmt.Fprintln(os.Stderr, "Error: --slug is required")
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(30*time.Second, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	tenantID, err := db.EnsureTenant(ctx, pool, *slug, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("tenant %s ready (id %d)\n", *slug, tenantID)
	return 0
}

// runTenantsSet writes one per-tenant setting. Only the well-known keys are
// accepted so a typo does not silently create a dead setting row.
func runTenantsSet(args []string) int {
	fs := flag.NewFlagSet("tenants set", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	tenantSlug := fs.String("tenant", "", "Tenant slug (required)")
	key := fs.String("key", "", "Setting key (required)")
	value := fs.String("value", "", "Setting value (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *tenantSlug == "" || *key == "" || *value == "" {
		fmt.Fprintln(os.Stderr, "Error: --tenant, --key, and --value are required")
		return 2
	}

	known := map[string]bool{
		settings.KeyAIMode:                  true,
		settings.KeyProgressiveSummaryHours: true,
		settings.KeyDailyTokenBudget:        true,
		settings.KeyDigestBacklogThreshold:  true,
		settings.KeyDigestAwayHours:         true,
		settings.KeyRetentionDays:           true,
	}
	if !known[*key] {
		fmt.Fprintf(os.Stderr, "Error: unknown setting key %q\n", *key)
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(30*time.Second, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	tenant, err := resolveTenantArg(ctx, pool, *tenantSlug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := settings.Set(ctx, pool, tenant.TenantID, *key, *value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("%s: %s = %s\n", tenant.Slug, *key, *value)
	return 0
}

func runTenantsList(args []string) int {
	fs := flag.NewFlagSet("tenants list", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(30*time.Second, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	tenants, err := db.ListTenants(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		type tenantRow struct {
			TenantID  int64  `json:"tenant_id"`
			UUID      string `json:"uuid"`
			Slug      string `json:"slug"`
			Name      string `json:"name"`
			CreatedAt string `json:"created_at"`
		}
		out := make([]tenantRow, 0, len(tenants))
		for _, t := range tenants {
			out = append(out, tenantRow{
				TenantID:  t.TenantID,
				UUID:      t.TenantUUID,
				Slug:      t.Slug,
				Name:      t.Name,
				CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if err := printJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(tenants))
	for _, t := range tenants {
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.TenantID),
			t.Slug,
			truncateForTable(t.Name, 40),
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeTable([]string{"ID", "SLUG", "NAME", "CREATED"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
