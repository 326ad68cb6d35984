package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/comps-valuation/internal/llm"
	"github.com/sells-group/comps-valuation/internal/model"
)

var printer = message.NewPrinter(language.English)

// money renders an amount as $X.XB, $X.XM or $X,XXX.
func money(v float64) string {
	switch abs := math.Abs(v); {
	case abs >= 1e9:
		return printer.Sprintf("$%.1fB", v/1e9)
	case abs >= 1e6:
		return printer.Sprintf("$%.1fM", v/1e6)
	default:
		return printer.Sprintf("$%.0f", v)
	}
}

func multiple(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1fx", *v)
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.SeparateRows = false
	return tw
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, text.Bold.Sprint(strings.ToUpper(title)))
}

// renderAnalysis writes a human readable report of a.
func renderAnalysis(w io.Writer, a *model.Analysis) error {
	fmt.Fprintf(w, "Analysis %s (%s)\n", a.ID, a.Status)
	if a.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", a.Error)
	}

	if a.Profile != nil {
		heading(w, "Company profile")
		tw := newTable(w)
		tw.AppendRows([]table.Row{
			{"Industry", a.Profile.Industry},
			{"Region", a.Profile.Region},
			{"Revenue", a.Profile.Revenue},
			{"Business model", a.Profile.BusinessModel},
			{"Growth stage", a.Profile.GrowthStage},
			{"Risk factors", strings.Join(a.Profile.RiskFactors, "; ")},
		})
		tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
		tw.Render()
	}

	if len(a.Comparables) > 0 {
		heading(w, "Comparable companies")
		renderComparables(w, a.Comparables)
	}

	if a.Valuation != nil {
		heading(w, "Valuation")
		renderValuation(w, *a.Valuation)
	}

	if a.Insights != nil && a.Insights.Summary != "" {
		heading(w, "Document insights")
		fmt.Fprintln(w, a.Insights.Summary)
	}

	if a.Narrative != "" {
		title := "Investment analysis"
		if a.NarrativeFallback {
			title += " (template)"
		}
		heading(w, title)
		plain, err := llm.PlainText(a.Narrative)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, plain)
	}
	return nil
}

func renderComparables(w io.Writer, comps []model.EnrichedComparable) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Ticker", "Company", "Industry", "Market Cap", "Revenue", "P/E", "EV/Rev", "EV/EBITDA", "1Y", "Match"})
	for _, c := range comps {
		name := c.Name
		if c.Degraded {
			name += " *"
		}
		tw.AppendRow(table.Row{
			c.Ticker,
			name,
			c.Industry,
			money(c.MarketCap),
			money(c.Revenue),
			multiple(c.PERatio),
			multiple(c.EVRevenue),
			multiple(c.EVEBITDA),
			fmt.Sprintf("%+.1f%%", c.OneYearChange),
			fmt.Sprintf("%.0f%%", c.MatchScore),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
		{Number: 10, Align: text.AlignRight},
	})
	tw.Render()

	for _, c := range comps {
		if c.Degraded {
			fmt.Fprintln(w, "* market data unavailable")
			break
		}
	}
}

func renderValuation(w io.Writer, v model.ValuationResult) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Method", "Factor", "Valuation", "Range", "Confidence"})
	tw.AppendRows([]table.Row{
		{"Revenue multiple", fmt.Sprintf("%.1fx", v.RevenueMultiple.Factor), money(v.RevenueMultiple.Valuation), rangeText(v.RevenueMultiple.Range), percent(v.RevenueMultiple.Confidence)},
		{"Growth adjusted", fmt.Sprintf("+%.0f%%", v.GrowthAdjusted.Factor*100), money(v.GrowthAdjusted.Valuation), rangeText(v.GrowthAdjusted.Range), percent(v.GrowthAdjusted.Confidence)},
		{"Risk adjusted", fmt.Sprintf("-%.0f%%", v.RiskAdjusted.Factor*100), money(v.RiskAdjusted.Valuation), rangeText(v.RiskAdjusted.Range), percent(v.RiskAdjusted.Confidence)},
	})
	tw.AppendFooter(table.Row{"Revenue", "", money(v.Revenue), "", ""})
	tw.Render()

	if v.UsedDefaults {
		fmt.Fprintln(w, "No comparable had a usable EV/Revenue multiple; industry default multiples were applied.")
	}
	fmt.Fprintln(w, v.RevenueMultiple.ConfidenceExplanation)
}

func rangeText(r model.Range) string {
	return money(r.Min) + " - " + money(r.Max)
}

// renderCandidates writes scored candidates from the matcher.
func renderCandidates(w io.Writer, cands []model.ScoredCandidate) {
	if len(cands) == 0 {
		fmt.Fprintln(w, "No comparable companies scored above the match threshold.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"#", "Ticker", "Company", "Industry", "Sector", "Region", "Score"})
	for i, c := range cands {
		tw.AppendRow(table.Row{i + 1, c.Ticker, c.Name, c.Industry, c.Sector, c.Region, fmt.Sprintf("%.1f", c.MatchScore)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 7, Align: text.AlignRight}})
	tw.Render()
}

// renderAnalysisList writes one line per stored analysis.
func renderAnalysisList(w io.Writer, list []model.Analysis) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No analyses found.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Created", "Status", "Industry", "Risk Adjusted"})
	for _, a := range list {
		industry, value := "", ""
		if a.Profile != nil {
			industry = a.Profile.Industry
		}
		if a.Valuation != nil {
			value = money(a.Valuation.RiskAdjusted.Valuation)
		}
		tw.AppendRow(table.Row{a.ID, a.CreatedAt.Format("2006-01-02 15:04"), string(a.Status), industry, value})
	}
	tw.Render()
}
