package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/trustlens/internal/model"
)

var analyzeFormat string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze one product page and print its trust report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFormat != "json" && analyzeFormat != "yaml" {
			return eris.Errorf("unsupported format %q (want json or yaml)", analyzeFormat)
		}

		env, err := initAnalyzer(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Analyzer.Analyze(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), report, analyzeFormat)
	},
}

// writeReport renders report as indented JSON or YAML.
func writeReport(w io.Writer, report *model.AnalysisReport, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "encode yaml report")
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "encode json report")
	default:
		return eris.Errorf("unsupported format %q", format)
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(analyzeCmd)
}
