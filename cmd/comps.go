package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/comps-valuation/internal/company"
	"github.com/sells-group/comps-valuation/internal/scorer"
)

var (
	compsIndustry      string
	compsRegion        string
	compsBusinessModel string
	compsLimit         int
	compsSeed          uint64
	compsNoJitter      bool
	compsFormat        string
)

var compsCmd = &cobra.Command{
	Use:   "comps",
	Short: "Rank reference companies against an industry and region (no external calls)",
	Example: `  comps-valuation comps --industry "B2B SaaS" --region "North America"
  comps-valuation comps --industry Fintech --region Europe --limit 10 --seed 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("offline"); err != nil {
			return err
		}
		if err := checkFormat(compsFormat); err != nil {
			return err
		}

		universe, err := initUniverse()
		if err != nil {
			return err
		}
		matcher, err := initMatcher(compsSeed, compsNoJitter)
		if err != nil {
			return err
		}

		limit := compsLimit
		if !cmd.Flags().Changed("limit") {
			limit = cfg.Analysis.ComparableLimit
		}

		return runComps(cmd.OutOrStdout(), universe, matcher, scorer.Target{
			Industry:      compsIndustry,
			Region:        compsRegion,
			BusinessModel: compsBusinessModel,
		}, limit, compsFormat)
	},
}

func runComps(w io.Writer, u *company.Universe, m *scorer.Matcher, target scorer.Target, limit int, format string) error {
	cands := m.Match(target, u.Companies(), limit)
	if format == "json" {
		return writeJSON(w, cands)
	}
	renderCandidates(w, cands)
	return nil
}

func init() {
	compsCmd.Flags().StringVar(&compsIndustry, "industry", "", "target industry (e.g. \"B2B SaaS\")")
	compsCmd.Flags().StringVar(&compsRegion, "region", "", "target region (e.g. \"North America\")")
	compsCmd.Flags().StringVar(&compsBusinessModel, "business-model", "", "target business model description")
	compsCmd.Flags().IntVar(&compsLimit, "limit", 5, "maximum comparables to return (default from config)")
	compsCmd.Flags().Uint64Var(&compsSeed, "seed", 0, "seed for reproducible tie-break jitter")
	compsCmd.Flags().BoolVar(&compsNoJitter, "no-jitter", false, "disable tie-break jitter")
	compsCmd.Flags().StringVar(&compsFormat, "format", "table", "output format: table or json")
	_ = compsCmd.MarkFlagRequired("industry")
	rootCmd.AddCommand(compsCmd)
}
