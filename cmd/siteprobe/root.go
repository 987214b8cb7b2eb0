package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "siteprobe",
		Short: "Bulk domain reachability checks and screenshots",
		Long: `siteprobe probes a list of domains with bounded parallelism, trying HTTPS
first and falling back to HTTP, and classifies every domain.

  check    reachability by HTTP status (LIVE, LIVE_REDIRECT, BLOCKED, ...)
  capture  full-page screenshots in a headless browser (OK / ERROR)
  history  runs recorded in the local history database`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Log to stderr at debug level")
	pf.StringP("config", "c", "", "Config file (.yaml, .yml or .toml)")
	pf.String("db", "", "History database path (default under the XDG data dir)")
	pf.Bool("no-history", false, "Do not record runs in the history database")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewCaptureCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✖", err)
		os.Exit(1)
	}
}
