package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/internal/store"
)

var (
	showID     string
	showStatus string
	showLimit  int
	showFormat string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a stored analysis, or list recent analyses when --id is omitted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		if err := checkFormat(showFormat); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		w := cmd.OutOrStdout()
		if showID == "" {
			list, err := st.ListAnalyses(ctx, store.AnalysisFilter{
				Status: model.AnalysisStatus(showStatus),
				Limit:  showLimit,
			})
			if err != nil {
				return err
			}
			if showFormat == "json" {
				return writeJSON(w, list)
			}
			renderAnalysisList(w, list)
			return nil
		}

		a, err := st.GetAnalysis(ctx, showID)
		if err != nil {
			return err
		}
		if showFormat == "json" {
			return writeJSON(w, a)
		}
		return renderAnalysis(w, a)
	},
}

func init() {
	showCmd.Flags().StringVar(&showID, "id", "", "analysis id")
	showCmd.Flags().StringVar(&showStatus, "status", "", "filter the listing by status (pending, complete, failed)")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "maximum analyses to list")
	showCmd.Flags().StringVar(&showFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(showCmd)
}
