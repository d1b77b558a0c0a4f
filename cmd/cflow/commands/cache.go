package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd groups cache maintenance subcommands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the forest cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [file.c...]",
	Short: "Remove cached forests",
	Long: `Removes the cached forests of the given C files from the cache directory.
Without arguments every cached forest is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.CacheDir == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No cache directory configured")
			return nil
		}

		a, err := newAnalyzer(appConfig, appLogger)
		if err != nil {
			return err
		}
		removed, err := a.clearCache(args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached forest(s) from %s\n", removed, appConfig.CacheDir)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	RootCmd.AddCommand(cacheCmd)
}
