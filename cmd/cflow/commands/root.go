// Package commands provides the CLI commands for the cflow tool.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-cflow/internal/config"
	"github.com/l3aro/go-cflow/internal/log"
)

var (
	configPath string
	workers    int
	cacheDir   string
	verbose    bool
	jsonLogs   bool

	appConfig *config.Config
	appLogger *log.DefaultLogger
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "cflow",
	Short: "cflow - Control flow graphs and def-use paths for C",
	Long: `cflow lowers every function of a C file into a control flow graph whose
blocks record the variables they define and use, and prints the def-use path
of each variable.

Commands:
  analyze     Print blocks, edges and def-use paths of a file
  paths       Print only the def-use paths
  dot         Write a Graphviz DOT file
  pick        Choose a .c file interactively, then analyze it
  init        Create a configuration file interactively
  cache       Remove cached forests

Use "cflow [command] --help" for more information about a command.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

// setup loads the configuration, applies flag overrides and configures the
// process logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		appConfig, err = config.LoadFromFile(configPath)
	} else {
		appConfig, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		appConfig.Workers = workers
	}
	if flags.Changed("cache-dir") {
		appConfig.CacheDir = cacheDir
	}
	if flags.Changed("json-logs") {
		appConfig.JSONLogs = jsonLogs
	}
	if verbose {
		appConfig.LogLevel = "debug"
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	appLogger = log.Default()
	appLogger.SetLevel(appConfig.Level())
	appLogger.SetJSONOutput(appConfig.JSONLogs)
	appLogger.Debug("configuration loaded", "format", appConfig.Format, "workers", appConfig.Workers, "cache_dir", appConfig.CacheDir)
	return nil
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file path (default: ./.cflow/config.yaml over ~/.cflow/config.yaml)")
	flags.IntVar(&workers, "workers", 4, "Number of functions lowered concurrently")
	flags.StringVar(&cacheDir, "cache-dir", "", "Directory persisting analysed files between runs")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON lines")
}
