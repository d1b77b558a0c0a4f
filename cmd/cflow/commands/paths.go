package commands

import (
	"github.com/spf13/cobra"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths <file.c>",
	Short: "Print the def-use paths of a C file",
	Long: `Prints, for every unit of a C file, one line per variable with the
ordered blocks that define or use it. Alternatives are written as
( [ ... ] | [ ... ] ) and repetitions as { [ ... ] }*.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		variable, _ := cmd.Flags().GetString("var")

		a, err := newAnalyzer(appConfig, appLogger)
		if err != nil {
			return err
		}
		a.function, _ = cmd.Flags().GetString("func")
		return a.writePaths(cmd.Context(), cmd.OutOrStdout(), args[0], variable)
	},
}

func init() {
	pathsCmd.Flags().String("var", "", "Only print the path of this variable")
	pathsCmd.Flags().String("func", "", "Only report the function with this name")
	RootCmd.AddCommand(pathsCmd)
}
