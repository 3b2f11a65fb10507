// Package app implements the rollup CLI: subcommand dispatch, flag parsing,
// and process exit codes. Exit code 2 means usage error, 1 means the command
// ran and failed.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "poll":
		return runPoll(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	case "digest":
		return runDigest(args[1:])
	case "retention":
		return runRetention(args[1:])
	case "tenants":
		return runTenants(args[1:])
	case "sources":
		return runSources(args[1:])
	case "clusters":
		return runClusters(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "rollup CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  rollup <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  poll       Poll due sources once and cluster new items")
	fmt.Fprintln(os.Stderr, "  daemon     Run the poll loop until interrupted")
	fmt.Fprintln(os.Stderr, "  digest     Generate a digest for a tenant")
	fmt.Fprintln(os.Stderr, "  retention  Expire old items and empty clusters")
	fmt.Fprintln(os.Stderr, "  tenants    Manage tenants (add, list, set)")
	fmt.Fprintln(os.Stderr, "  sources    Manage feed subscriptions (add, list, mute, unmute, remove)")
	fmt.Fprintln(os.Stderr, "  clusters   Inspect and merge clusters (list, merge)")
	fmt.Fprintln(os.Stderr, "  serve      Start the Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"rollup <command> -h\" for command-specific flags.")
}
