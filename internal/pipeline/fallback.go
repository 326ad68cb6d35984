package pipeline

import (
	"html"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/comps-valuation/internal/model"
)

// FallbackNarrative builds the template narrative used when the narrative
// service is unavailable. It only uses already computed numbers.
func FallbackNarrative(profile model.CompanyProfile, v model.ValuationResult) string {
	p := message.NewPrinter(language.English)
	industry := html.EscapeString(profile.Industry)
	region := html.EscapeString(profile.Region)
	risk := v.RiskAdjusted

	paragraphs := []string{
		p.Sprintf("<p><strong>Investment Thesis:</strong> Based on the provided company description and comparable analysis, this represents an interesting investment opportunity in the %s sector.</p>", industry),
		p.Sprintf("<p><strong>Valuation Assessment:</strong> Our analysis suggests a fair value range of $%.0fM-$%.0fM, with a central estimate of $%.1fM.</p>",
			risk.Range.Min/1e6, risk.Range.Max/1e6, risk.Valuation/1e6),
		p.Sprintf("<p><strong>Key Considerations:</strong> The valuation reflects the company's position in %s and competitive dynamics in the %s market.</p>", region, industry),
		"<p><strong>Risk Assessment:</strong> Standard risks for companies at this stage include market competition, execution risk, and economic sensitivity.</p>",
	}
	return strings.Join(paragraphs, "\n")
}
