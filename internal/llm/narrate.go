package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/comps-valuation/internal/model"
)

const narrateSystem = "You are a managing director at an investment bank with long experience in private " +
	"company valuation and M&A. Write institutional-quality investment analysis for an investment committee, " +
	"specific with numbers and grounded in the comparable set."

// NarrativeInput is everything the narrative prompt draws on.
type NarrativeInput struct {
	Description string
	Profile     model.CompanyProfile
	Comparables []model.EnrichedComparable
	Valuation   model.ValuationResult
	Insights    *model.Insights
}

// Narrator writes the investment narrative for a finished valuation.
type Narrator struct {
	llm Completer
}

// NewNarrator creates a Narrator backed by c.
func NewNarrator(c Completer) *Narrator {
	return &Narrator{llm: c}
}

// Narrate returns the narrative as HTML.
func (n *Narrator) Narrate(ctx context.Context, in NarrativeInput) (string, error) {
	out, err := n.llm.Complete(ctx, Prompt{
		System:      narrateSystem,
		User:        NarrativePrompt(in),
		MaxTokens:   2500,
		Temperature: 0.3,
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: narrate")
	}
	markup, err := RenderHTML(out.Text)
	if err != nil {
		return "", err
	}
	if markup == "" {
		return "", eris.New("llm: empty narrative")
	}
	return markup, nil
}

// ComparableAverages summarizes a comparable set for the prompt.
type ComparableAverages struct {
	EVRevenue     float64
	MarketCap     float64
	OneYearChange float64
}

// Averages computes EV/Revenue over usable multiples and the other means
// over every comparable. Empty inputs give zeros.
func Averages(comps []model.EnrichedComparable) ComparableAverages {
	var avg ComparableAverages
	if len(comps) == 0 {
		return avg
	}
	var evSum float64
	var evCount int
	for _, c := range comps {
		if m, ok := c.UsableMultiple(); ok {
			evSum += m
			evCount++
		}
		avg.MarketCap += c.MarketCap
		avg.OneYearChange += c.OneYearChange
	}
	if evCount > 0 {
		avg.EVRevenue = evSum / float64(evCount)
	}
	avg.MarketCap /= float64(len(comps))
	avg.OneYearChange /= float64(len(comps))
	return avg
}

// NarrativePrompt renders the user prompt for Narrate.
func NarrativePrompt(in NarrativeInput) string {
	p := in.Profile
	v := in.Valuation
	var b strings.Builder

	b.WriteString("Write an investment analysis for the private company below, based on the comparable ")
	b.WriteString("analysis and the three valuation estimates.\n\n")

	b.WriteString("COMPANY PROFILE\n")
	fmt.Fprintf(&b, "Industry: %s\nRegion: %s\nRevenue: %s\nBusiness model: %s\nGrowth stage: %s\n",
		p.Industry, p.Region, p.Revenue, p.BusinessModel, p.GrowthStage)
	fmt.Fprintf(&b, "Market position: %s\nStrengths: %s\n", p.MarketPosition, p.Strengths)
	fmt.Fprintf(&b, "Competitive advantages: %s\nRisk factors: %s\n\n",
		strings.Join(p.CompetitiveAdvantages, ", "), strings.Join(p.RiskFactors, ", "))

	fmt.Fprintf(&b, "COMPARABLE COMPANIES (%d)\n", len(in.Comparables))
	for _, c := range in.Comparables {
		fmt.Fprintf(&b, "- %s (%s): market cap $%.1fB, revenue $%.1fB, EV/Revenue %s, P/E %s, 1Y %+.1f%%, match %.0f%%\n",
			c.Name, c.Ticker, c.MarketCap/1e9, c.Revenue/1e9,
			multiple(c.EVRevenue), ratio(c.PERatio), c.OneYearChange, c.MatchScore)
	}

	avg := Averages(in.Comparables)
	b.WriteString("\nCOMPARABLE AVERAGES\n")
	fmt.Fprintf(&b, "- EV/Revenue: %.1fx\n- Market cap: $%.1fB\n- 1Y performance: %+.1f%%\n- Multiple applied: %.1fx\n\n",
		avg.EVRevenue, avg.MarketCap/1e9, avg.OneYearChange, v.RevenueMultiple.Factor)

	b.WriteString("VALUATION\n")
	writeEstimate(&b, "1. Revenue multiple", fmt.Sprintf("multiple %.1fx", v.RevenueMultiple.Factor), v.RevenueMultiple)
	writeEstimate(&b, "2. Growth adjusted", fmt.Sprintf("premium +%.0f%%", v.GrowthAdjusted.Factor*100), v.GrowthAdjusted)
	writeEstimate(&b, "3. Risk adjusted", fmt.Sprintf("discount -%.0f%%", v.RiskAdjusted.Factor*100), v.RiskAdjusted)
	if v.UsedDefaults {
		b.WriteString("No comparable had a usable EV/Revenue multiple; the estimates use industry default multiples.\n")
	}

	if in.Insights != nil {
		b.WriteString("\nMARKET INTELLIGENCE\n")
		b.WriteString(in.Insights.Summary)
		b.WriteString("\n")
		writeBullets(&b, "Market data", in.Insights.MarketData)
		writeBullets(&b, "Competitive intelligence", in.Insights.CompetitiveIntel)
		writeBullets(&b, "Additional risk factors", in.Insights.RiskFactors)
		writeBullets(&b, "Other insights", in.Insights.Insights)
	}

	b.WriteString(`
Structure the analysis with these bold headings: Executive Summary, Investment Thesis,
Valuation Assessment, Competitive Landscape, Key Investment Highlights, Risk Analysis,
Valuation Summary and Recommendation. Use markdown with short paragraphs and bullet points.

Original description:
`)
	b.WriteString(in.Description)
	return b.String()
}

func writeEstimate(b *strings.Builder, title, factor string, e model.ValuationEstimate) {
	fmt.Fprintf(b, "%s: $%.1fM (%s, confidence %.0f%%, range $%.0fM - $%.0fM)\n",
		title, e.Valuation/1e6, factor, e.Confidence*100, e.Range.Min/1e6, e.Range.Max/1e6)
}

func writeBullets(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func multiple(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1fx", *v)
}

func ratio(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}
