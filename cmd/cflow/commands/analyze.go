package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-cflow/internal/config"
	"github.com/l3aro/go-cflow/pkg/report"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.c>",
	Short: "Print the control flow graphs and def-use paths of a C file",
	Long: `Parses a C file, lowers every function into a control flow graph and
prints each block with its successors, code, defined and used variables,
followed by the def-use path of every variable.

Consecutive global declarations and type aliases are reported as one unit
each. A unit that cannot be lowered is reported with its error and the command
exits with status 1 after printing the rest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		noCode, _ := cmd.Flags().GetBool("no-code")
		variable, _ := cmd.Flags().GetString("var")

		a, err := newAnalyzer(appConfig, appLogger)
		if err != nil {
			return err
		}
		a.function, _ = cmd.Flags().GetString("func")
		opts := report.Options{ShowCode: appConfig.ShowCode && !noCode, Var: variable}
		return a.writeReport(cmd.Context(), cmd.OutOrStdout(), args[0], format, opts)
	},
}

// formatFlag returns --format, falling back to the configured format.
func formatFlag(cmd *cobra.Command) (config.Format, error) {
	if !cmd.Flags().Changed("format") {
		return appConfig.Format, nil
	}
	v, _ := cmd.Flags().GetString("format")
	format := config.Format(strings.ToLower(v))
	if !format.Valid() {
		return "", fmt.Errorf("invalid format: %s (must be one of text, json, dot, msgpack)", v)
	}
	return format, nil
}

func init() {
	analyzeCmd.Flags().StringP("format", "f", string(config.FormatText), "Output format (text, json, msgpack, dot)")
	analyzeCmd.Flags().Bool("no-code", false, "Omit block code lines from the text report")
	analyzeCmd.Flags().String("var", "", "Only print the def-use path of this variable")
	analyzeCmd.Flags().String("func", "", "Only report the function with this name")
	RootCmd.AddCommand(analyzeCmd)
}
