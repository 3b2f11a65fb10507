package app

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/cli"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	subscriptionschema "github.com/CodesWhat/rss-wrangler-sub003/schema"
)

func runSources(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: rollup sources <add|list|mute|unmute|remove> [flags]")
		return 2
	}

	switch args[0] {
	case "add":
		return runSourcesAdd(args[1:])
	case "list":
		return runSourcesList(args[1:])
	case "mute":
		return runSourcesSetMuted(args[1:], true)
	case "unmute":
		return runSourcesSetMuted(args[1:], false)
	case "remove", "rm":
		return runSourcesRemove(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown sources subcommand: %s\n", args[0])
		return 2
	}
}

// runSourcesAdd accepts either a JSON subscription file (--file, validated
// against the subscription schema) or the individual flags. Both paths go
// through the same validator so the CLI and the API reject the same inputs.
func runSourcesAdd(args []string) int {
	fs := flag.NewFlagSet("sources add", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	file := fs.String("file", "", "Path to a JSON subscription payload")
	tenantSlug := fs.String("tenant", "", "Tenant slug")
	feedURL := fs.String("url", "", "Feed URL")
	title := fs.String("title", "", "Source title")
	siteURL := fs.String("site", "", "Site URL")
	weight := fs.String("weight", "", "Source weight: prefer, neutral, or deprioritize")
	folder := fs.String("folder", "", "Folder name for grouping")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var payload []byte
	if *file != "" {
		raw, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: read %s: %v\n", *file, err)
			return 1
		}
		payload = raw
	} else {
		if *tenantSlug == "" || *feedURL == "" {
			fmt.Fprintln(os.Stderr, "Error: --tenant and --url are required (or use --file)")
			return 2
		}
		doc := map[string]any{
			"tenant":   *tenantSlug,
			"feed_url": *feedURL,
		}
		if *title != "" {
			doc["title"] = *title
		}
		if *siteURL != "" {
			doc["site_url"] = *siteURL
		}
		if *weight != "" {
			doc["weight"] = *weight
		}
		if *folder != "" {
			doc["folder"] = *folder
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		payload = raw
	}

	sub, err := subscriptionschema.ValidateSourceSubscription(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid subscription: %v\n", err)
		return 1
	}

	ctx, cancel, _, pool, err := connectPool(30*time.Second, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	tenant, err := resolveTenantArg(ctx, pool, sub.Tenant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	subTitle := pointerStringOrEmpty(sub.Title)
	var subSite *string
	if site := pointerStringOrEmpty(sub.SiteURL); site != "" {
		subSite = &site
	}
	weightName := ""
	if sub.Weight != nil {
		weightName = *sub.Weight
	}
	subWeight, err := db.WeightFromName(weightName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	sourceID, err := db.InsertSource(ctx, pool, tenant.TenantID, sub.FeedURL, subTitle, subSite, subWeight, sub.Folder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if sourceID == 0 {
		fmt.Printf("source already subscribed for tenant %s\n", sub.Tenant)
		return 0
	}
	fmt.Printf("source %d subscribed for tenant %s\n", sourceID, sub.Tenant)
	return 0
}

func runSourcesList(args []string) int {
	fs := flag.NewFlagSet("sources list", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	tenantSlug := fs.String("tenant", "", "Tenant slug (required)")
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

	sources, err := db.ListSourceStatus(ctx, pool, tenant.TenantID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		type sourceRow struct {
			SourceID         int64  `json:"source_id"`
			FeedURL          string `json:"feed_url"`
			Title            string `json:"title"`
			Weight           string `json:"weight"`
			Folder           string `json:"folder,omitempty"`
			Muted            bool   `json:"muted"`
			Failures         int    `json:"consecutive_failures"`
			CircuitOpenUntil string `json:"circuit_open_until,omitempty"`
			LastSuccessAt    string `json:"last_success_at,omitempty"`
			LastError        string `json:"last_error,omitempty"`
			ItemCount        int64  `json:"item_count"`
		}
		out := make([]sourceRow, 0, len(sources))
		for _, s := range sources {
			out = append(out, sourceRow{
				SourceID:         s.SourceID,
				FeedURL:          s.FeedURL,
				Title:            s.Title,
				Weight:           db.WeightName(s.Weight),
				Folder:           pointerStringOrEmpty(s.Folder),
				Muted:            s.Muted,
				Failures:         s.ConsecutiveFailures,
				CircuitOpenUntil: formatUTCTimestampPtr(s.CircuitOpenUntil),
				LastSuccessAt:    formatUTCTimestampPtr(s.LastSuccessAt),
				LastError:        pointerStringOrEmpty(s.LastError),
				ItemCount:        s.ItemCount,
			})
		}
		if err := printJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(sources))
	for _, s := range sources {
		state := "ok"
		switch {
		case s.Muted:
			state = "muted"
		case s.CircuitOpenUntil != nil:
			state = "cooling"
		case s.ConsecutiveFailures > 0:
			state = "failing"
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.SourceID, 10),
			truncateForTable(s.FeedURL, 60),
			truncateForTable(s.Title, 30),
			db.WeightName(s.Weight),
			truncateForTable(pointerStringOrEmpty(s.Folder), 20),
			state,
			strconv.Itoa(s.ConsecutiveFailures),
			formatUTCTimestampPtr(s.LastSuccessAt),
			strconv.FormatInt(s.ItemCount, 10),
		})
	}
	if err := writeTable([]string{"ID", "FEED", "TITLE", "WEIGHT", "FOLDER", "STATE", "FAILURES", "LAST_SUCCESS", "ITEMS"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runSourcesSetMuted(args []string, muted bool) int {
	verb := "mute"
	if !muted {
		verb = "unmute"
	}
	fs := flag.NewFlagSet("sources "+verb, flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	sourceID := fs.Int64("id", 0, "Source ID (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *sourceID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(30*time.Second, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	changed, err := db.SetSourceMuted(ctx, pool, *sourceID, muted)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !changed {
		fmt.Fprintf(os.Stderr, "Error: source %d not found\n", *sourceID)
		return 1
	}
	fmt.Printf("source %d %sd\n", *sourceID, verb)
	return 0
}

func runSourcesRemove(args []string) int {
	fs := flag.NewFlagSet("sources remove", flag.ExitOnError)
	envLoader := cli.AddEnvFlag(fs, "", "")
	sourceID := fs.Int64("id", 0, "Source ID (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *sourceID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(30*time.Second, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	removed, err := db.SoftDeleteSource(ctx, pool, *sourceID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !removed {
		fmt.Fprintf(os.Stderr, "Error: source %d not found\n", *sourceID)
		return 1
	}
	fmt.Printf("source %d unsubscribed (stored items kept)\n", *sourceID)
	return 0
}
