package model

import "time"

// AnalysisStatus represents the lifecycle state of an analysis record.
type AnalysisStatus string

const (
	AnalysisPending  AnalysisStatus = "pending"
	AnalysisComplete AnalysisStatus = "complete"
	AnalysisFailed   AnalysisStatus = "failed"
)

// Insights is the categorized output of the document search enrichment.
type Insights struct {
	Insights         []string `json:"insights"`
	MarketData       []string `json:"marketData"`
	CompetitiveIntel []string `json:"competitiveIntel"`
	RiskFactors      []string `json:"riskFactors"`
	Summary          string   `json:"summary"`
}

// Analysis is the persisted record of one valuation request.
type Analysis struct {
	ID                 string               `json:"analysisId"`
	CompanyDescription string               `json:"companyDescription"`
	AnalysisDepth      AnalysisDepth        `json:"analysisDepth"`
	ValuationMethods   ValuationMethods     `json:"valuationMethods"`
	Status             AnalysisStatus       `json:"status"`
	Profile            *CompanyProfile      `json:"extractedData,omitempty"`
	Comparables        []EnrichedComparable `json:"comparableCompanies,omitempty"`
	Valuation          *ValuationResult     `json:"valuationResults,omitempty"`
	Narrative          string               `json:"aiAnalysis,omitempty"`
	NarrativeFallback  bool                 `json:"narrativeFallback,omitempty"`
	Insights           *Insights            `json:"insights,omitempty"`
	Error              string               `json:"error,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}
