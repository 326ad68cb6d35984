package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/comps-valuation/internal/model"
)

const profileJSON = `{
  "industry": "B2B SaaS - Manufacturing Tech",
  "region": "North America",
  "revenue": "$12M ARR",
  "businessModel": "Subscription SaaS",
  "growthStage": "Growth Stage (40% YoY)",
  "strengths": "Deep ERP integrations",
  "marketPosition": "Challenger in mid-market",
  "competitiveAdvantages": ["Vertical focus", "Fast onboarding"],
  "riskFactors": ["market competition", "customer concentration risk"]
}`

func TestExtract_ParsesProfile(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.MatchedBy(func(p Prompt) bool {
		return p.JSON && strings.Contains(p.User, `"investment-grade"`) && strings.Contains(p.User, "widget software")
	})).Return(&Completion{Text: profileJSON}, nil)

	p, err := NewExtractor(c).Extract(context.Background(), "We build widget software for factories.", model.DepthInvestmentGrade)
	require.NoError(t, err)
	assert.Equal(t, "B2B SaaS - Manufacturing Tech", p.Industry)
	assert.Equal(t, "$12M ARR", p.Revenue)
	assert.Equal(t, []string{"market competition", "customer concentration risk"}, p.RiskFactors)
	c.AssertExpectations(t)
}

func TestExtract_DefaultDepth(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.MatchedBy(func(p Prompt) bool {
		return strings.Contains(p.User, `"comprehensive"`)
	})).Return(&Completion{Text: profileJSON}, nil)

	_, err := NewExtractor(c).Extract(context.Background(), "desc", "")
	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestExtract_CompleterError(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded"))

	_, err := NewExtractor(c).Extract(context.Background(), "desc", model.DepthStandard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm: extract profile")
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		check   func(t *testing.T, p model.CompanyProfile)
		wantErr bool
	}{
		{
			name: "fenced json",
			text: "```json\n" + profileJSON + "\n```",
			check: func(t *testing.T, p model.CompanyProfile) {
				assert.Equal(t, "North America", p.Region)
			},
		},
		{
			name: "prose around object",
			text: "Here is the profile:\n" + profileJSON + "\nLet me know.",
			check: func(t *testing.T, p model.CompanyProfile) {
				assert.Equal(t, "Subscription SaaS", p.BusinessModel)
			},
		},
		{
			name: "trailing comma repaired",
			text: `{"industry": "Fintech", "region": "Europe",}`,
			check: func(t *testing.T, p model.CompanyProfile) {
				assert.Equal(t, "Fintech", p.Industry)
				assert.Equal(t, "Europe", p.Region)
			},
		},
		{
			name: "missing fields get placeholders",
			text: `{"industry": "Healthcare"}`,
			check: func(t *testing.T, p model.CompanyProfile) {
				assert.Equal(t, model.UnknownRegion, p.Region)
				assert.Equal(t, model.UnknownRevenue, p.Revenue)
				assert.Equal(t, []string{model.PendingRisks}, p.RiskFactors)
			},
		},
		{
			name: "list given as string falls back to placeholder",
			text: `{"industry": "Healthcare", "competitiveAdvantages": "many"}`,
			check: func(t *testing.T, p model.CompanyProfile) {
				assert.Equal(t, []string{model.PendingAdvantages}, p.CompetitiveAdvantages)
			},
		},
		{name: "empty", text: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProfile(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}
