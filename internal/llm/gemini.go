package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/comps-valuation/internal/config"
	"github.com/sells-group/comps-valuation/internal/cost"
)

// GeminiCompleter runs prompts against the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// GeminiOption tweaks the genai client config.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at a different API host.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = url
	}
}

// NewGemini creates a Gemini-backed Completer.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, opts ...GeminiOption) (*GeminiCompleter, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.Key,
		Backend: genai.BackendGeminiAPI,
	}
	for _, o := range opts {
		o(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create gemini client")
	}
	return &GeminiCompleter{client: client, model: cfg.Model}, nil
}

// Complete implements Completer.
func (g *GeminiCompleter) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(p.Temperature)),
	}
	if p.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(p.MaxTokens)
	}
	if p.JSON {
		gc.ResponseMIMEType = "application/json"
	}
	if p.System != "" {
		gc.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: p.System}},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), gc)
	if err != nil {
		return nil, eris.Wrap(err, "llm: gemini completion")
	}

	out := &Completion{
		Text:     result.Text(),
		Provider: cost.ProviderGemini,
		Model:    g.model,
	}
	if u := result.UsageMetadata; u != nil {
		out.InputTokens = int64(u.PromptTokenCount)
		out.OutputTokens = int64(u.CandidatesTokenCount)
	}
	return out, nil
}
