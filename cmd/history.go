package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/sells-group/trustlens/internal/analyze"
)

var historyCmd = &cobra.Command{
	Use:   "history <url>",
	Short: "Print the recorded price history of a product page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		an := analyze.New(nil, st, analyze.OptionsFromConfig(cfg))
		h, err := an.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
