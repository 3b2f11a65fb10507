package app

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/cli"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
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

	if err := pool.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: database ping failed: %v\n", err)
		return 1
	}

	tenants, err := db.ListTenants(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	type tenantHealth struct {
		Slug               string `json:"tenant"`
		Sources            int64  `json:"sources"`
		MutedSources       int64  `json:"muted_sources"`
		OpenCircuits       int64  `json:"open_circuits"`
		Items              int64  `json:"items"`
		Clusters           int64  `json:"clusters"`
		UndigestedClusters int64  `json:"undigested_clusters"`
		Digests            int64  `json:"digests"`
	}

	report := make([]tenantHealth, 0, len(tenants))
	for _, tenant := range tenants {
		stats, err := db.StatsForTenant(ctx, pool, tenant.TenantID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		report = append(report, tenantHealth{
			Slug:               tenant.Slug,
			Sources:            stats.Sources,
			MutedSources:       stats.MutedSources,
			OpenCircuits:       stats.OpenCircuits,
			Items:              stats.Items,
			Clusters:           stats.Clusters,
			UndigestedClusters: stats.UndigestedClusters,
			Digests:            stats.Digests,
		})
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{"database": "ok", "tenants": report}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Println("database: ok")
	rows := make([][]string, 0, len(report))
	for _, r := range report {
		rows = append(rows, []string{
			r.Slug,
			strconv.FormatInt(r.Sources, 10),
			strconv.FormatInt(r.MutedSources, 10),
			strconv.FormatInt(r.OpenCircuits, 10),
			strconv.FormatInt(r.Items, 10),
			strconv.FormatInt(r.Clusters, 10),
			strconv.FormatInt(r.UndigestedClusters, 10),
			strconv.FormatInt(r.Digests, 10),
		})
	}
	if err := writeTable([]string{"TENANT", "SOURCES", "MUTED", "OPEN_CIRCUITS", "ITEMS", "CLUSTERS", "UNDIGESTED", "DIGESTS"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
