package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/comps-valuation/internal/model"
)

const extractSystem = "You are a financial analyst specializing in company valuation and competitive analysis. " +
	"Return only a JSON object, no prose."

// Extractor turns a free-text company description into a CompanyProfile.
type Extractor struct {
	llm Completer
}

// NewExtractor creates an Extractor backed by c.
func NewExtractor(c Completer) *Extractor {
	return &Extractor{llm: c}
}

// Extract asks the model for a structured profile. Missing fields are filled
// with placeholders; an unreachable model or unparseable answer is an error.
func (e *Extractor) Extract(ctx context.Context, description string, depth model.AnalysisDepth) (model.CompanyProfile, error) {
	if depth == "" {
		depth = model.DepthComprehensive
	}

	out, err := e.llm.Complete(ctx, Prompt{
		System:      extractSystem,
		User:        extractPrompt(description, depth),
		MaxTokens:   2048,
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		return model.CompanyProfile{}, eris.Wrap(err, "llm: extract profile")
	}

	profile, err := ParseProfile(out.Text)
	if err != nil {
		return model.CompanyProfile{}, err
	}

	zap.L().Debug("llm: profile extracted",
		zap.String("industry", profile.Industry),
		zap.String("region", profile.Region),
		zap.Int64("input_tokens", out.InputTokens),
		zap.Int64("output_tokens", out.OutputTokens),
	)
	return profile, nil
}

func extractPrompt(description string, depth model.AnalysisDepth) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the company description below and extract key business information at %q depth.\n\n", depth)
	b.WriteString("Company description:\n")
	b.WriteString(description)
	b.WriteString(`

Respond with a JSON object with exactly these keys:
{
  "industry": "primary industry, specific (e.g. 'B2B SaaS - Manufacturing Tech')",
  "region": "primary geographic market (e.g. 'North America', 'Europe', 'Global')",
  "revenue": "revenue with amount and timeframe (e.g. '$12M ARR', '$50M annually')",
  "businessModel": "business model (e.g. 'Subscription SaaS', 'Marketplace')",
  "growthStage": "growth stage with metrics if known (e.g. 'Growth Stage (40% YoY)')",
  "strengths": "short summary of key strengths",
  "marketPosition": "market position and competitive landscape",
  "competitiveAdvantages": ["3-5 competitive advantages"],
  "riskFactors": ["3-5 primary risk factors"]
}`)
	return b.String()
}

// ParseProfile decodes a model answer into a profile. It tolerates code
// fences, surrounding prose and the usual malformed-JSON mistakes.
func ParseProfile(text string) (model.CompanyProfile, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return model.CompanyProfile{}, eris.New("llm: empty profile response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		repaired, repairErr := jsonrepair.RepairJSON(cleaned)
		if repairErr != nil {
			return model.CompanyProfile{}, eris.Wrap(repairErr, "llm: repair profile json")
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return model.CompanyProfile{}, eris.Wrap(err, "llm: decode profile json")
		}
	}
	if raw == nil {
		return model.CompanyProfile{}, eris.New("llm: profile response is not an object")
	}

	p := model.CompanyProfile{
		Industry:              stringField(raw, "industry"),
		Region:                stringField(raw, "region"),
		Revenue:               stringField(raw, "revenue"),
		BusinessModel:         stringField(raw, "businessModel"),
		GrowthStage:           stringField(raw, "growthStage"),
		Strengths:             stringField(raw, "strengths"),
		MarketPosition:        stringField(raw, "marketPosition"),
		CompetitiveAdvantages: listField(raw, "competitiveAdvantages"),
		RiskFactors:           listField(raw, "riskFactors"),
	}
	return p.WithDefaults(), nil
}

// cleanJSON strips code fences and anything outside the outermost braces.
func cleanJSON(text string) string {
	text = StripCodeFences(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return ""
	}
}

// listField returns nil unless the value is a JSON array, so that
// WithDefaults substitutes the placeholder.
func listField(raw map[string]any, key string) []string {
	arr, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
