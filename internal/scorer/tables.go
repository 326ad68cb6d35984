package scorer

// industryKeyTerms are domain keywords that mark two industry labels as
// related when both contain one.
var industryKeyTerms = []string{
	"saas", "software", "tech", "technology", "manufacturing",
	"fintech", "healthcare", "ai", "data", "analytics",
}

// sectorKeywords maps a reference company's sector to keywords that, found
// in the target industry, indicate the same sector.
var sectorKeywords = map[string][]string{
	"Technology":         {"tech", "software", "saas", "ai", "data", "digital", "platform"},
	"Financial Services": {"fintech", "finance", "payment", "banking"},
	"Healthcare":         {"healthcare", "medical", "health", "pharma"},
	"Manufacturing":      {"manufacturing", "industrial", "automation"},
}

// regionGroup is a canonical region name and the labels treated as part of it.
type regionGroup struct {
	name    string
	aliases []string
}

var regionGroups = []regionGroup{
	{name: "north america", aliases: []string{"usa", "us", "america", "canada", "north american"}},
	{name: "europe", aliases: []string{"european", "eu", "uk", "britain", "germany", "france"}},
	{name: "asia", aliases: []string{"asian", "china", "japan", "singapore", "india"}},
	{name: "global", aliases: []string{"worldwide", "international", "multinational"}},
}

// modelKeywords groups terms that describe the same business model.
var modelKeywords = [][]string{
	{"platform", "marketplace", "network"},
	{"saas", "software", "cloud", "subscription"},
	{"automation", "workflow", "process"},
	{"analytics", "data", "insights", "intelligence"},
}
