// Package llm adapts language-model providers to the two calls an analysis
// makes: profile extraction and narrative generation.
package llm

import (
	"context"

	"github.com/sells-group/comps-valuation/internal/cost"
)

// Prompt is a single-turn request to a language model.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int64
	Temperature float64
	// JSON asks the provider for a JSON response where it supports one.
	JSON bool
}

// Completion is the text a model returned along with its token usage.
type Completion struct {
	Text         string
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Completer runs one prompt against a model. Implementations make exactly
// one attempt per call.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}

// Metered wraps a Completer and records the usage of every successful call.
type Metered struct {
	next  Completer
	tally *cost.Tally
}

// NewMetered returns c with usage recorded into tally. A nil tally returns c
// unchanged.
func NewMetered(c Completer, tally *cost.Tally) Completer {
	if tally == nil {
		return c
	}
	return &Metered{next: c, tally: tally}
}

// Complete implements Completer.
func (m *Metered) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	out, err := m.next.Complete(ctx, p)
	if err != nil {
		return nil, err
	}
	m.tally.Add(out.Provider, out.Model, out.InputTokens, out.OutputTokens)
	return out, nil
}
