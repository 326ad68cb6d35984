// Package insights pulls supporting context for an analysis out of a document
// search index and sorts it into categories for the narrative.
package insights

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/pkg/docsearch"
)

const (
	topDocuments     = 5
	perCategory      = 5
	snippetSentences = 3
	snippetMaxLen    = 1000
	descriptionTerms = 10
)

// NoResultsSummary is the summary used when the index returns nothing.
const NoResultsSummary = "No additional information found in the document index."

var (
	nonWord       = regexp.MustCompile(`[^\w\s]`)
	sentenceBreak = regexp.MustCompile(`[.!?]+`)
)

var snippetKeywords = []string{
	"valuation",
	"growth strategy",
	"market expansion",
	"investment strategy",
	"competitive advantage",
	"strategic partnership",
}

// Gatherer queries the search index for one analysis.
type Gatherer struct {
	client docsearch.Client
	top    int
}

// New creates a Gatherer requesting up to top documents per query.
func New(client docsearch.Client, top int) *Gatherer {
	if top <= 0 {
		top = 10
	}
	return &Gatherer{client: client, top: top}
}

// Gather searches the index and summarizes the hits.
func (g *Gatherer) Gather(ctx context.Context, profile model.CompanyProfile, description string) (*model.Insights, error) {
	query := BuildQuery(profile, description)
	if query == "" {
		return nil, eris.New("insights: empty query")
	}

	docs, err := g.client.Search(ctx, docsearch.SearchRequest{
		Search:     query,
		SearchMode: "any",
		QueryType:  "full",
		Top:        g.top,
		Select:     "*",
		OrderBy:    "search.score() desc",
	})
	if err != nil {
		return nil, eris.Wrap(err, "insights: search")
	}
	return Summarize(docs, profile), nil
}

// BuildQuery joins the first description terms longer than three characters
// with the region and the business-model terms longer than two characters.
func BuildQuery(profile model.CompanyProfile, description string) string {
	var terms []string

	cleaned := nonWord.ReplaceAllString(strings.ToLower(description), " ")
	for _, w := range strings.Fields(cleaned) {
		if len(terms) == descriptionTerms {
			break
		}
		if utf8.RuneCountInString(w) > 3 {
			terms = append(terms, w)
		}
	}

	if known(profile.Region, model.UnknownRegion) {
		terms = append(terms, profile.Region)
	}
	if known(profile.BusinessModel, model.UnknownBusinessModel) {
		for _, w := range strings.Fields(profile.BusinessModel) {
			if utf8.RuneCountInString(w) > 2 {
				terms = append(terms, w)
			}
		}
	}
	return strings.Join(terms, " ")
}

// Summarize keeps the most relevant documents and files a snippet of each
// under the first matching category.
func Summarize(docs []docsearch.Document, profile model.CompanyProfile) *model.Insights {
	out := &model.Insights{
		Insights:         []string{},
		MarketData:       []string{},
		CompetitiveIntel: []string{},
		RiskFactors:      []string{},
	}
	if len(docs) == 0 {
		out.Summary = NoResultsSummary
		return out
	}

	ranked := slices.Clone(docs)
	slices.SortStableFunc(ranked, func(a, b docsearch.Document) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(ranked) > topDocuments {
		ranked = ranked[:topDocuments]
	}

	keywords := profileKeywords(profile)
	for _, d := range ranked {
		snippet := Snippet(string(d.Content), keywords)
		if snippet == "" {
			continue
		}
		content := strings.ToLower(string(d.Content))
		switch {
		case containsAny(content, "market", "trend", "growth"):
			out.MarketData = appendCapped(out.MarketData, snippet)
		case containsAny(content, "competitor", "competitive", "market share"):
			out.CompetitiveIntel = appendCapped(out.CompetitiveIntel, snippet)
		case containsAny(content, "risk", "challenge", "threat"):
			out.RiskFactors = appendCapped(out.RiskFactors, snippet)
		default:
			out.Insights = appendCapped(out.Insights, snippet)
		}
	}

	out.Summary = summary(ranked, profile)
	return out
}

// Snippet returns up to three sentences of content that mention a keyword,
// truncated to 1000 characters.
func Snippet(content string, keywords []string) string {
	var picked []string
	for _, s := range sentenceBreak.Split(content, -1) {
		lower := strings.ToLower(s)
		if strings.TrimSpace(s) != "" && containsAny(lower, keywords...) {
			picked = append(picked, s)
			if len(picked) == snippetSentences {
				break
			}
		}
	}
	snippet := strings.TrimSpace(strings.Join(picked, "."))
	if utf8.RuneCountInString(snippet) > snippetMaxLen {
		snippet = string([]rune(snippet)[:snippetMaxLen]) + "..."
	}
	return snippet
}

func profileKeywords(p model.CompanyProfile) []string {
	kw := slices.Clone(snippetKeywords)
	if known(p.Industry, model.UnknownIndustry) {
		kw = append(kw, strings.ToLower(p.Industry))
	}
	if known(p.Region, model.UnknownRegion) {
		kw = append(kw, strings.ToLower(p.Region))
	}
	if known(p.BusinessModel, model.UnknownBusinessModel) {
		kw = append(kw, strings.Fields(strings.ToLower(p.BusinessModel))...)
	}
	return kw
}

func summary(docs []docsearch.Document, p model.CompanyProfile) string {
	var total float64
	var industryHits, regionHits int
	industry := strings.ToLower(p.Industry)
	region := strings.ToLower(p.Region)
	for _, d := range docs {
		total += d.Score
		content := strings.ToLower(string(d.Content))
		if industry != "" && strings.Contains(content, industry) {
			industryHits++
		}
		if region != "" && strings.Contains(content, region) {
			regionHits++
		}
	}
	avg := total / float64(len(docs))

	return fmt.Sprintf("Found %d relevant documents in the internal knowledge base using the company's industry, "+
		"region and business model (average relevance score %.2f). %d mention the industry and %d mention the region. "+
		"The categorized findings below cover growth trends, competitive dynamics and risks that may influence the valuation.",
		len(docs), avg, industryHits, regionHits)
}

func known(v, placeholder string) bool {
	return v != "" && v != placeholder
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func appendCapped(list []string, s string) []string {
	if len(list) >= perCategory {
		return list
	}
	return append(list, s)
}
