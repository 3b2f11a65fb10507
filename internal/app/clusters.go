package app

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/cli"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/globaltime"
)

func runClusters(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: rollup clusters <list|merge> [flags]")
		return 2
	}

	switch args[0] {
	case "list":
		return runClustersList(args[1:])
	case "merge":
		return runClustersMerge(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown clusters subcommand: %s\n", args[0])
		return 2
	}
}

func runClustersList(args []string) int {
	fs := flag.NewFlagSet("clusters list", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	tenantSlug := fs.String("tenant", "", "Tenant slug (required)")
	hours := fs.Int("hours", 72, "Look back this many hours")
	limit := fs.Int("limit", 50, "Maximum clusters to list")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *tenantSlug == "" {
		fmt.Fprintln(os.Stderr, "Error: --tenant is required")
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

	tenant, err := resolveTenantArg(ctx, pool, *tenantSlug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	since := globaltime.UTC().Add(-time.Duration(*hours) * time.Hour)
	clusters, err := db.RecentClusters(ctx, pool, tenant.TenantID, since, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		type clusterRow struct {
			ClusterID   int64  `json:"cluster_id"`
			Title       string `json:"title"`
			Members     int    `json:"member_count"`
			Sources     int    `json:"source_count"`
			FirstSeenAt string `json:"first_seen_at"`
			LastSeenAt  string `json:"last_seen_at"`
			Digested    bool   `json:"digested"`
		}
		out := make([]clusterRow, 0, len(clusters))
		for _, c := range clusters {
			out = append(out, clusterRow{
				ClusterID:   c.ClusterID,
				Title:       c.Title,
				Members:     c.MemberCount,
				Sources:     c.SourceCount,
				FirstSeenAt: c.FirstSeenAt.UTC().Format(time.RFC3339),
				LastSeenAt:  c.LastSeenAt.UTC().Format(time.RFC3339),
				Digested:    c.DigestedAt != nil,
			})
		}
		if err := printJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(clusters))
	for _, c := range clusters {
		digested := ""
		if c.DigestedAt != nil {
			digested = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatInt(c.ClusterID, 10),
			truncateForTable(c.Title, 60),
			strconv.Itoa(c.MemberCount),
			strconv.Itoa(c.SourceCount),
			c.LastSeenAt.UTC().Format(time.RFC3339),
			digested,
		})
	}
	if err := writeTable([]string{"ID", "TITLE", "MEMBERS", "SOURCES", "LAST_SEEN", "DIGESTED"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runClustersMerge(args []string) int {
	fs := flag.NewFlagSet("clusters merge", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	into := fs.Int64("into", 0, "Destination cluster ID (required)")
	from := fs.Int64("from", 0, "Source cluster ID to fold in (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *into <= 0 || *from <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --into and --from are required")
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(30*time.Second, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	result, err := db.MergeClusters(ctx, pool, *into, *from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("merged cluster %d into %d: moved %d members, new member count %d\n",
		*from, *into, result.MovedMembers, result.NewMemberCount)
	return 0
}
