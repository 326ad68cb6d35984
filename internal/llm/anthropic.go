package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/comps-valuation/internal/config"
	"github.com/sells-group/comps-valuation/internal/cost"
	"github.com/sells-group/comps-valuation/pkg/anthropic"
)

// AnthropicCompleter runs prompts against the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic builds a Completer from the anthropic config section.
func NewAnthropic(client anthropic.Client, cfg config.AnthropicConfig) *AnthropicCompleter {
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicCompleter{client: client, model: cfg.Model, maxTokens: maxTokens}
}

// Complete implements Completer.
func (a *AnthropicCompleter) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	maxTokens := a.maxTokens
	if p.MaxTokens > 0 {
		maxTokens = p.MaxTokens
	}
	temp := p.Temperature

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		System:      p.System,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic completion")
	}

	return &Completion{
		Text:         resp.Text(),
		Provider:     cost.ProviderAnthropic,
		Model:        a.model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
