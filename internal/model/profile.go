package model

// AnalysisDepth controls how much detail the profile extraction asks for.
type AnalysisDepth string

const (
	DepthStandard        AnalysisDepth = "standard"
	DepthComprehensive   AnalysisDepth = "comprehensive"
	DepthInvestmentGrade AnalysisDepth = "investment-grade"
)

// ValuationMethods records which valuation methods the caller asked for.
type ValuationMethods string

const (
	MethodsAll             ValuationMethods = "all"
	MethodsRevenueMultiple ValuationMethods = "revenue-multiple"
	MethodsEarnings        ValuationMethods = "earnings-multiple"
	MethodsCustom          ValuationMethods = "custom"
)

// CompanyProfile is the structured view of a free-text company description.
// It is produced once by the extraction step and never modified afterwards.
type CompanyProfile struct {
	Industry              string   `json:"industry"`
	Region                string   `json:"region"`
	Revenue               string   `json:"revenue"`
	BusinessModel         string   `json:"businessModel"`
	GrowthStage           string   `json:"growthStage"`
	Strengths             string   `json:"strengths"`
	MarketPosition        string   `json:"marketPosition"`
	CompetitiveAdvantages []string `json:"competitiveAdvantages"`
	RiskFactors           []string `json:"riskFactors"`
}

// Placeholder values used when the extraction service omits a field.
const (
	UnknownIndustry       = "Unknown Industry"
	UnknownRegion         = "Unknown Region"
	UnknownRevenue        = "Revenue not disclosed"
	UnknownBusinessModel  = "Business model not specified"
	UnknownGrowthStage    = "Growth stage not specified"
	UnknownStrengths      = "Competitive advantages not identified"
	UnknownMarketPosition = "Market position analysis pending"
	PendingAdvantages     = "Competitive advantages analysis pending"
	PendingRisks          = "Risk assessment pending"
)

// WithDefaults returns a copy of p where every empty field carries its
// placeholder value.
func (p CompanyProfile) WithDefaults() CompanyProfile {
	out := p
	out.Industry = orDefault(p.Industry, UnknownIndustry)
	out.Region = orDefault(p.Region, UnknownRegion)
	out.Revenue = orDefault(p.Revenue, UnknownRevenue)
	out.BusinessModel = orDefault(p.BusinessModel, UnknownBusinessModel)
	out.GrowthStage = orDefault(p.GrowthStage, UnknownGrowthStage)
	out.Strengths = orDefault(p.Strengths, UnknownStrengths)
	out.MarketPosition = orDefault(p.MarketPosition, UnknownMarketPosition)
	if p.CompetitiveAdvantages == nil {
		out.CompetitiveAdvantages = []string{PendingAdvantages}
	} else {
		out.CompetitiveAdvantages = append([]string(nil), p.CompetitiveAdvantages...)
	}
	if p.RiskFactors == nil {
		out.RiskFactors = []string{PendingRisks}
	} else {
		out.RiskFactors = append([]string(nil), p.RiskFactors...)
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
