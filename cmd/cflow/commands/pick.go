package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-cflow/internal/scanner"
	"github.com/l3aro/go-cflow/pkg/report"
)

// pickCmd represents the pick command
var pickCmd = &cobra.Command{
	Use:   "pick [dir]",
	Short: "Choose a C file interactively and analyze it",
	Long: `Lists the .c files under a directory (default: current directory),
asks which one to analyze and prints its report in the configured format.
Files matched by a .cflowignore file in the directory are not listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		absPath, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("getting absolute path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("stat path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("path is not a directory: %s", dir)
		}

		files, err := scanner.New(scanner.DefaultOptions()).Scan(absPath)
		if err != nil {
			return fmt.Errorf("scanning directory: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no .c files found in %s", dir)
		}

		var chosen string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Which file should be analyzed?").
					Description(fmt.Sprintf("%d C files under %s", len(files), dir)).
					Options(fileOptions(files)...).
					Value(&chosen),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}

		a, err := newAnalyzer(appConfig, appLogger)
		if err != nil {
			return err
		}
		opts := report.Options{ShowCode: appConfig.ShowCode}
		return a.writeReport(cmd.Context(), cmd.OutOrStdout(), chosen, appConfig.Format, opts)
	},
}

// fileOptions labels each file with its relative path and size; the value is
// the absolute path.
func fileOptions(files []scanner.FileInfo) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(files))
	for _, f := range files {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%d bytes)", f.Path, f.Size), f.FullPath))
	}
	return options
}

func init() {
	RootCmd.AddCommand(pickCmd)
}
