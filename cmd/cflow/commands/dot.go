package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// dotCmd represents the dot command
var dotCmd = &cobra.Command{
	Use:   "dot <file.c>...",
	Short: "Write Graphviz DOT files",
	Long: `Writes one <name>.dot file per C file with a cluster per function.
Render it with: dot -Tpng name.dot -o name.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		if !cmd.Flags().Changed("out") {
			outDir = appConfig.OutputDir
		}

		a, err := newAnalyzer(appConfig, appLogger)
		if err != nil {
			return err
		}

		var firstErr error
		for _, path := range args {
			out, err := a.writeDOT(cmd.Context(), path, outDir)
			if out != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	},
}

func init() {
	dotCmd.Flags().StringP("out", "o", ".", "Output directory")
	RootCmd.AddCommand(dotCmd)
}
