package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dirsync",
		Short: "Directory user sync service",
		Long: `dirsync keeps a two-tier cache of directory users fresh and exposes
sync operations over an authenticated gRPC admin API.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			logAppVersion(cmd)
		},
	})

	return rootCmd
}

func logAppVersion(cmd *cobra.Command) {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Fprintf(cmd.OutOrStdout(), tmpl, buildVersion, buildDate, buildCommit)
}
