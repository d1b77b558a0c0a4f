package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-cflow/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize cflow configuration interactively",
	Long: `Guides you through setting up cflow configuration step by step.
Writes ./.cflow/config.yaml, or ~/.cflow/config.yaml with --global.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		global, _ := cmd.Flags().GetBool("global")
		path := config.ProjectConfigFilePath()
		if global {
			path = config.GlobalConfigFilePath()
		}
		return runInit(cmd, path)
	},
}

func runInit(cmd *cobra.Command, path string) error {
	conf := *appConfig
	conf.LogLevel = strings.ToLower(conf.LogLevel)
	format := string(conf.Format)
	workersText := strconv.Itoa(conf.Workers)
	cacheSizeText := strconv.Itoa(conf.CacheSize)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Report format").
				Description("Default output of cflow analyze and cflow pick").
				Options(
					huh.NewOption("Text listing", string(config.FormatText)),
					huh.NewOption("JSON", string(config.FormatJSON)),
					huh.NewOption("Graphviz DOT", string(config.FormatDOT)),
					huh.NewOption("msgpack", string(config.FormatMsgpack)),
				).
				Value(&format),
			huh.NewConfirm().
				Title("Show block code in text reports?").
				Value(&conf.ShowCode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Workers").
				Description("Number of functions lowered concurrently").
				Value(&workersText).
				Validate(positiveInt),
			huh.NewInput().
				Title("Cache directory (optional, press Enter to keep results in memory only)").
				Placeholder("~/.cflow/cache").
				Value(&conf.CacheDir),
			huh.NewInput().
				Title("Cache size").
				Description("Number of analysed files kept in memory").
				Value(&cacheSizeText).
				Validate(positiveInt),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&conf.LogLevel),
			huh.NewInput().
				Title("DOT output directory").
				Value(&conf.OutputDir),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	conf.Format = config.Format(format)
	conf.Workers, _ = strconv.Atoi(workersText)
	conf.CacheSize, _ = strconv.Atoi(cacheSizeText)

	// Validate config before saving
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := conf.Save(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

func init() {
	initCmd.Flags().Bool("global", false, "Write the global config instead of the project config")
	RootCmd.AddCommand(initCmd)
}
