// Web Search Tool.
//
// Information Hiding:
// - Tavily API protocol hidden
// - Result formatting encapsulated

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// defaultSearchResults bounds how many hits a single search returns.
const defaultSearchResults = 3

// WebSearchTool searches the web through the Tavily API.
type WebSearchTool struct {
	BaseTool
	apiKey     string
	endpoint   string
	maxResults int
	client     *http.Client
}

// NewWebSearchTool creates a new web search tool with the given API key.
func NewWebSearchTool(apiKey string) *WebSearchTool {
	return &WebSearchTool{
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		maxResults: defaultSearchResults,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// WithEndpoint overrides the API endpoint.
func (t *WebSearchTool) WithEndpoint(endpoint string) *WebSearchTool {
	t.endpoint = endpoint
	return t
}

// WithMaxResults overrides the result count cap.
func (t *WebSearchTool) WithMaxResults(n int) *WebSearchTool {
	if n > 0 {
		t.maxResults = n
	}
	return t
}

// Metadata returns the tool metadata.
func (t *WebSearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "web_search",
		Description: "Search the web for current information and return the top results",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "The search query", Required: true},
		},
	}
}

type webSearchArgs struct {
	Query string `json:"query"`
}

type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Validate validates the arguments.
func (t *WebSearchTool) Validate(args json.RawMessage) error {
	var a webSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

// Execute runs the search and formats the results.
func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a webSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	if t.apiKey == "" {
		return FailureResultf("web search is not configured: missing API key"), nil
	}

	payload, err := json.Marshal(tavilyRequest{Query: a.Query, MaxResults: t.maxResults})
	if err != nil {
		return FailureResult(fmt.Errorf("failed to encode request: %w", err)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return FailureResult(fmt.Errorf("failed to create request: %w", err)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return FailureResult(fmt.Errorf("search request failed: %w", err)), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return FailureResult(fmt.Errorf("failed to read response: %w", err)), nil
	}

	if resp.StatusCode != http.StatusOK {
		return FailureResultf("search API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil
	}

	var result tavilyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return FailureResult(fmt.Errorf("failed to decode response: %w", err)), nil
	}

	if len(result.Results) == 0 {
		return SuccessResult("No results found."), nil
	}

	var sb strings.Builder
	if result.Answer != "" {
		sb.WriteString(result.Answer)
		sb.WriteString("\n\n")
	}
	for i, r := range result.Results {
		fmt.Fprintf(&sb, "%d. %s\n%s\n%s\n\n", i+1, r.Title, r.URL, strings.TrimSpace(r.Content))
	}
	return SuccessResult(strings.TrimSpace(sb.String())), nil
}
