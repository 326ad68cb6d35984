// Package export renders stored analyses as CSV or XLSX downloads.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/comps-valuation/internal/model"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ErrNoResults is returned for analyses that have no comparables or valuation
// to export, such as failed ones.
var ErrNoResults = eris.New("export: analysis has no results")

// ParseFormat accepts "csv" or "xlsx" in any case. An empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	default:
		return "", eris.Errorf("export: unsupported format %q (want csv or xlsx)", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename returns the download name for an analysis export.
func Filename(id string, f Format, now time.Time) string {
	return fmt.Sprintf("analysis_%s_%d.%s", id, now.UnixMilli(), f)
}

// Write renders a in format f.
func Write(w io.Writer, a *model.Analysis, f Format, now time.Time) error {
	switch f {
	case CSV:
		return WriteCSV(w, a, now)
	case XLSX:
		return WriteXLSX(w, a)
	default:
		return eris.Errorf("export: unsupported format %q", f)
	}
}

// comparableColumns is the column order shared by the CSV and the
// Comparables sheet.
var comparableColumns = []string{
	"Company",
	"Ticker",
	"Industry",
	"Market Cap",
	"Revenue",
	"P/E Ratio",
	"EV/Revenue",
	"EV/EBITDA",
	"1Y Change",
	"Match Score",
}

const notAvailable = "N/A"

// WriteCSV writes the comparables table preceded by "#" comment lines
// describing the export.
func WriteCSV(w io.Writer, a *model.Analysis, now time.Time) error {
	if !hasResults(a) {
		return ErrNoResults
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Analysis Export - %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(bw, "# Target Company: %s company\n", oneLine(targetIndustry(a)))
	fmt.Fprintf(bw, "# Analysis ID: %s\n", a.ID)
	fmt.Fprintln(bw)

	cw := csv.NewWriter(bw)
	if err := cw.Write(comparableColumns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, c := range a.Comparables {
		if err := cw.Write(csvRow(c)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", c.Ticker)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return eris.Wrap(bw.Flush(), "export: flush output")
}

func csvRow(c model.EnrichedComparable) []string {
	return []string{
		c.Name,
		c.Ticker,
		c.Industry,
		amount(c.MarketCap),
		amount(c.Revenue),
		optional(c.PERatio),
		optional(c.EVRevenue),
		optional(c.EVEBITDA),
		formatNumber(c.OneYearChange) + "%",
		strconv.FormatFloat(c.MatchScore, 'f', 1, 64) + "%",
	}
}

// WriteXLSX writes a workbook with a Comparables sheet and a Valuation sheet.
func WriteXLSX(w io.Writer, a *model.Analysis) error {
	if !hasResults(a) {
		return ErrNoResults
	}

	f := xlsx.NewFile()

	comps, err := f.AddSheet("Comparables")
	if err != nil {
		return eris.Wrap(err, "export: add comparables sheet")
	}
	addStringRow(comps, comparableColumns...)
	for _, c := range a.Comparables {
		row := comps.AddRow()
		row.AddCell().SetString(c.Name)
		row.AddCell().SetString(c.Ticker)
		row.AddCell().SetString(c.Industry)
		addAmountCell(row, c.MarketCap)
		addAmountCell(row, c.Revenue)
		addOptionalCell(row, c.PERatio)
		addOptionalCell(row, c.EVRevenue)
		addOptionalCell(row, c.EVEBITDA)
		row.AddCell().SetFloatWithFormat(c.OneYearChange/100, "0.0%")
		row.AddCell().SetFloatWithFormat(c.MatchScore, "0.0")
	}

	val, err := f.AddSheet("Valuation")
	if err != nil {
		return eris.Wrap(err, "export: add valuation sheet")
	}
	addStringRow(val, "Method", "Factor", "Valuation", "Range Min", "Range Max", "Confidence", "Rationale")
	if a.Valuation != nil {
		for _, e := range a.Valuation.Estimates() {
			row := val.AddRow()
			row.AddCell().SetString(methodLabel(e.Kind))
			row.AddCell().SetFloatWithFormat(e.Factor, "0.00")
			row.AddCell().SetFloatWithFormat(e.Valuation, "#,##0")
			row.AddCell().SetFloatWithFormat(e.Range.Min, "#,##0")
			row.AddCell().SetFloatWithFormat(e.Range.Max, "#,##0")
			row.AddCell().SetFloatWithFormat(e.Confidence, "0%")
			row.AddCell().SetString(e.ConfidenceExplanation)
		}
		val.AddRow()
		rev := val.AddRow()
		rev.AddCell().SetString("Normalized Revenue")
		rev.AddCell().SetFloatWithFormat(a.Valuation.Revenue, "#,##0")
		if a.Valuation.UsedDefaults {
			addStringRow(val, "Note", "No comparable had a usable EV/Revenue multiple; industry defaults were applied.")
		}
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func methodLabel(k model.EstimateKind) string {
	switch k {
	case model.EstimateRevenueMultiple:
		return "Revenue Multiple"
	case model.EstimateGrowthAdjusted:
		return "Growth Adjusted"
	case model.EstimateRiskAdjusted:
		return "Risk Adjusted"
	default:
		return string(k)
	}
}

func addStringRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addAmountCell(row *xlsx.Row, v float64) {
	if v <= 0 {
		row.AddCell().SetString(notAvailable)
		return
	}
	row.AddCell().SetFloatWithFormat(v, "#,##0")
}

func addOptionalCell(row *xlsx.Row, v *float64) {
	if v == nil || *v == 0 {
		row.AddCell().SetString(notAvailable)
		return
	}
	row.AddCell().SetFloatWithFormat(*v, "0.00")
}

func hasResults(a *model.Analysis) bool {
	return a != nil && (len(a.Comparables) > 0 || a.Valuation != nil)
}

func targetIndustry(a *model.Analysis) string {
	if a.Profile == nil || a.Profile.Industry == "" {
		return "Unknown"
	}
	return a.Profile.Industry
}

// amount renders zero as N/A: a zero market cap or revenue only comes from a
// degraded comparable.
func amount(v float64) string {
	if v <= 0 {
		return notAvailable
	}
	return formatNumber(v)
}

func optional(v *float64) string {
	if v == nil || *v == 0 {
		return notAvailable
	}
	return formatNumber(*v)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
