// Package docsearch is a client for a hosted full-text search index exposing
// the /indexes/{index}/docs/search REST endpoint.
package docsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the search operations.
type Client interface {
	Search(ctx context.Context, req SearchRequest) ([]Document, error)
}

// SearchRequest is a full-text query.
type SearchRequest struct {
	Search       string `json:"search"`
	SearchMode   string `json:"searchMode,omitempty"`
	QueryType    string `json:"queryType,omitempty"`
	Top          int    `json:"top,omitempty"`
	Select       string `json:"select,omitempty"`
	SearchFields string `json:"searchFields,omitempty"`
	OrderBy      string `json:"orderby,omitempty"`
}

// Document is one search hit.
type Document struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	CompanyName string  `json:"companyName"`
	Region      string  `json:"region"`
	Content     Content `json:"content"`
	Score       float64 `json:"@search.score"`
}

// Content is document text. Indexes store it either as a string or as a
// list of {"content": "..."} chunks; chunks are joined with spaces.
type Content string

// UnmarshalJSON implements json.Unmarshaler.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Content(s)
	case data[0] == '[':
		var chunks []struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(data, &chunks); err != nil {
			return err
		}
		parts := make([]string, 0, len(chunks))
		for _, ch := range chunks {
			parts = append(parts, ch.Content)
		}
		*c = Content(strings.Join(parts, " "))
	default:
		*c = Content(data)
	}
	return nil
}

type searchResponse struct {
	Value []Document `json:"value"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithAPIVersion overrides the api-version query parameter.
func WithAPIVersion(v string) Option {
	return func(c *httpClient) {
		if v != "" {
			c.apiVersion = v
		}
	}
}

type httpClient struct {
	endpoint   string
	apiKey     string
	index      string
	apiVersion string
	http       *http.Client
}

// NewClient creates a client for index at endpoint.
func NewClient(endpoint, apiKey, index string, opts ...Option) Client {
	c := &httpClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		index:      index,
		apiVersion: "2023-11-01",
		http:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, sr SearchRequest) ([]Document, error) {
	payload, err := json.Marshal(sr)
	if err != nil {
		return nil, eris.Wrap(err, "docsearch: marshal request")
	}

	reqURL := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		c.endpoint, url.PathEscape(c.index), url.QueryEscape(c.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "docsearch: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "docsearch: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "docsearch: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("docsearch: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "docsearch: decode response")
	}
	return out.Value, nil
}
