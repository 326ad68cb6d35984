package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/comps-valuation/internal/config"
	"github.com/sells-group/comps-valuation/internal/cost"
	"github.com/sells-group/comps-valuation/pkg/anthropic"
)

func TestAnthropicCompleter(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-sonnet-4-5-20250929" &&
			req.MaxTokens == 2048 &&
			req.System == "sys" &&
			len(req.Messages) == 1 && req.Messages[0].Content == "hello" &&
			req.Temperature != nil && *req.Temperature == 0.3
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "{}"}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}, nil)

	c := NewAnthropic(client, config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 4096})
	out, err := c.Complete(context.Background(), Prompt{System: "sys", User: "hello", MaxTokens: 2048, Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "{}", out.Text)
	assert.Equal(t, cost.ProviderAnthropic, out.Provider)
	assert.Equal(t, int64(100), out.InputTokens)
	client.AssertExpectations(t)
}

func TestAnthropicCompleter_DefaultMaxTokens(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.MaxTokens == 4096
	})).Return(nil, errors.New("rate limited"))

	c := NewAnthropic(client, config.AnthropicConfig{Model: "m"})
	_, err := c.Complete(context.Background(), Prompt{User: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm: anthropic completion")
	client.AssertExpectations(t)
}

func TestGeminiCompleter(t *testing.T) {
	var body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": `{"industry":"Fintech"}`}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     12,
				"candidatesTokenCount": 3,
				"totalTokenCount":      15,
			},
		})
	}))
	defer ts.Close()

	c, err := NewGemini(context.Background(), config.GeminiConfig{Key: "gm-test", Model: "gemini-2.5-flash"}, WithGeminiBaseURL(ts.URL))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), Prompt{System: "valuation analyst", User: "extract", JSON: true, Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, `{"industry":"Fintech"}`, out.Text)
	assert.Equal(t, cost.ProviderGemini, out.Provider)
	assert.Equal(t, int64(12), out.InputTokens)
	assert.Equal(t, int64(3), out.OutputTokens)
	assert.True(t, strings.Contains(body, "valuation analyst"))
	assert.True(t, strings.Contains(body, "application/json"))
}

func TestMetered_RecordsSuccessOnly(t *testing.T) {
	inner := &mockCompleter{}
	inner.On("Complete", mock.Anything, mock.Anything).Return(&Completion{
		Provider: cost.ProviderAnthropic, Model: "sonnet", InputTokens: 1_000_000, OutputTokens: 0,
	}, nil).Once()
	inner.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	tally := cost.NewTally(cost.NewCalculator(cost.Rates{
		Anthropic: map[string]cost.ModelRate{"sonnet": {Input: 3, Output: 15}},
	}))
	c := NewMetered(inner, tally)

	_, err := c.Complete(context.Background(), Prompt{})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), Prompt{})
	require.Error(t, err)

	s := tally.Summary()
	assert.Equal(t, 1, s.Calls)
	assert.InDelta(t, 3.0, s.USD, 1e-9)
}

func TestNewMetered_NilTally(t *testing.T) {
	inner := &mockCompleter{}
	assert.Same(t, inner, NewMetered(inner, nil))
}
