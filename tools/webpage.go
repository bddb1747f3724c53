// Webpage Scraper Tool.
//
// Information Hiding:
// - HTTP client configuration hidden
// - HTML stripping and length capping encapsulated

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// maxPageChars caps scraped page text so a single page cannot flood the
// model's context window.
const maxPageChars = 3000

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	htmlTagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
	spacesRe      = regexp.MustCompile(`[ \t]{2,}`)
)

// WebpageTool fetches a web page and returns its visible text.
type WebpageTool struct {
	BaseTool
	client *http.Client
}

// NewWebpageTool creates a new webpage tool with the given timeout.
func NewWebpageTool(timeoutSecs uint64) *WebpageTool {
	return &WebpageTool{
		client: &http.Client{
			Timeout: time.Duration(timeoutSecs) * time.Second,
		},
	}
}

// Metadata returns the tool metadata.
func (t *WebpageTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "scrape_webpage",
		Description: "Fetch a web page and return its visible text content, truncated to 3000 characters",
		Parameters: []ToolParameter{
			{Name: "url", ParamType: "string", Description: "The URL of the page to fetch", Required: true},
		},
	}
}

type webpageArgs struct {
	URL string `json:"url"`
}

// Validate validates the arguments.
func (t *WebpageTool) Validate(args json.RawMessage) error {
	var a webpageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if a.URL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	parsed, err := url.Parse(a.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("invalid URL %q", a.URL)
	}
	return nil
}

// Execute fetches the page and strips it down to text.
func (t *WebpageTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a webpageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to create request: %w", err)), nil
	}
	req.Header.Set("User-Agent", "pythia/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return FailureResult(fmt.Errorf("request failed: %w", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FailureResultf("request to %s returned status %d", a.URL, resp.StatusCode), nil
	}

	// Read a bounded prefix; the text cap makes the rest irrelevant.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return FailureResult(fmt.Errorf("failed to read response: %w", err)), nil
	}

	text := stripHTML(string(body))
	if runes := []rune(text); len(runes) > maxPageChars {
		text = string(runes[:maxPageChars])
	}
	if strings.TrimSpace(text) == "" {
		return FailureResultf("page at %s contained no readable text", a.URL), nil
	}

	return SuccessResult(text), nil
}

// stripHTML removes markup and collapses whitespace to readable text.
func stripHTML(html string) string {
	text := scriptStyleRe.ReplaceAllString(html, " ")
	text = htmlTagRe.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&#39;", "'")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spacesRe.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
