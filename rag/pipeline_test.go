package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
)

// scriptedProvider answers grading, rewriting and generation prompts from
// canned behavior keyed on prompt content.
type scriptedProvider struct {
	// relevantContent marks document bodies to grade "yes".
	relevantContent map[string]bool
	rewriteTo       string
	generateAnswer  string

	gradeCalls    int
	rewriteCalls  int
	generateCalls int
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	prompt := messages[len(messages)-1].Content
	if strings.Contains(prompt, "improved search phrase") {
		p.rewriteCalls++
		return llm.LLMResponse{Content: p.rewriteTo}, nil
	}
	if strings.Contains(prompt, "knowledge base") {
		p.generateCalls++
		return llm.LLMResponse{Content: p.generateAnswer}, nil
	}
	return llm.LLMResponse{}, fmt.Errorf("unexpected prompt: %s", prompt)
}

func (p *scriptedProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, format *llm.ResponseFormat) (llm.LLMResponse, error) {
	prompt := messages[len(messages)-1].Content
	if !strings.Contains(prompt, "relevance reviewer") {
		return llm.LLMResponse{}, fmt.Errorf("unexpected format prompt: %s", prompt)
	}
	p.gradeCalls++
	for content, relevant := range p.relevantContent {
		if strings.Contains(prompt, content) && relevant {
			return llm.LLMResponse{Content: `{"grade": "yes"}`}, nil
		}
	}
	return llm.LLMResponse{Content: `{"grade": "no"}`}, nil
}

func (p *scriptedProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDefinition) (llm.LLMResponse, error) {
	return llm.LLMResponse{}, fmt.Errorf("tools not supported")
}

var _ llm.Provider = (*scriptedProvider)(nil)

// staticRetriever returns the same documents for every query and records
// the queries it saw.
type staticRetriever struct {
	docs    []model.Document
	queries []string
}

func (r *staticRetriever) Retrieve(ctx context.Context, query string, topK int) ([]model.Document, error) {
	r.queries = append(r.queries, query)
	return r.docs, nil
}

func TestPipelineAnswersFromRelevantDocument(t *testing.T) {
	docs := []model.Document{
		{Content: "alpha body", Source: "a.md"},
		{Content: "beta body", Source: "b.md"},
		{Content: "gamma body", Source: "c.md"},
		{Content: "delta body", Source: "d.md"},
		{Content: "epsilon body", Source: "e.md"},
	}
	provider := &scriptedProvider{
		relevantContent: map[string]bool{"gamma body": true},
		generateAnswer:  "the answer is gamma",
	}
	retriever := &staticRetriever{docs: docs}
	pipeline := NewPipeline(retriever, llm.NewClient(provider))

	result, err := pipeline.Run(context.Background(), "what is gamma?")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Answer != "the answer is gamma" {
		t.Errorf("Answer = %q, want %q", result.Answer, "the answer is gamma")
	}
	if len(result.Documents) != 1 || result.Documents[0].Content != "gamma body" {
		t.Errorf("Documents = %v, want only the relevant one", result.Documents)
	}
	if result.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", result.RetryCount)
	}
	if provider.gradeCalls != 5 {
		t.Errorf("gradeCalls = %d, want 5", provider.gradeCalls)
	}
}

func TestPipelineExhaustsRetriesAndFallsBack(t *testing.T) {
	docs := []model.Document{
		{Content: "noise one", Source: "n1.md"},
		{Content: "noise two", Source: "n2.md"},
		{Content: "noise three", Source: "n3.md"},
	}
	provider := &scriptedProvider{
		relevantContent: map[string]bool{},
		rewriteTo:       "better query",
	}
	retriever := &staticRetriever{docs: docs}
	pipeline := NewPipeline(retriever, llm.NewClient(provider))

	result, err := pipeline.Run(context.Background(), "unanswerable")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Answer != NotFoundAnswer {
		t.Errorf("Answer = %q, want the fixed fallback", result.Answer)
	}
	if result.RetryCount != DefaultMaxRetries {
		t.Errorf("RetryCount = %d, want %d", result.RetryCount, DefaultMaxRetries)
	}
	// Rewrites are bounded, so there are exactly four retrieval rounds.
	if len(retriever.queries) != 4 {
		t.Errorf("retrieval rounds = %d, want 4", len(retriever.queries))
	}
	if provider.rewriteCalls != DefaultMaxRetries {
		t.Errorf("rewriteCalls = %d, want %d", provider.rewriteCalls, DefaultMaxRetries)
	}
	// The empty-context fallback must not cost a generation call.
	if provider.generateCalls != 0 {
		t.Errorf("generateCalls = %d, want 0", provider.generateCalls)
	}
	if len(result.Documents) != 0 {
		t.Errorf("Documents = %v, want empty", result.Documents)
	}
}

func TestPipelineGradesAndGeneratesWithRewrittenQuery(t *testing.T) {
	provider := &rewriteAwareProvider{rewriteTo: "solar irradiance records"}
	retriever := &staticRetriever{docs: []model.Document{{Content: "irradiance table", Source: "i.md"}}}
	pipeline := NewPipeline(retriever, llm.NewClient(provider))

	result, err := pipeline.Run(context.Background(), "sun numbers")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.RetryCount != 1 {
		t.Fatalf("RetryCount = %d, want 1", result.RetryCount)
	}
	if result.FinalQuery != "solar irradiance records" {
		t.Errorf("FinalQuery = %q, want the rewritten query", result.FinalQuery)
	}
	// The round after the rewrite must grade against the rewritten query,
	// not the original phrasing.
	if len(provider.gradePrompts) != 2 {
		t.Fatalf("gradePrompts = %d, want 2", len(provider.gradePrompts))
	}
	if !strings.Contains(provider.gradePrompts[0], "sun numbers") {
		t.Errorf("first grade prompt missing original query: %q", provider.gradePrompts[0])
	}
	if !strings.Contains(provider.gradePrompts[1], "solar irradiance records") {
		t.Errorf("post-rewrite grade prompt missing rewritten query: %q", provider.gradePrompts[1])
	}
	// Generation answers the query that found the documents.
	if !strings.Contains(provider.generatePrompt, "solar irradiance records") {
		t.Errorf("generate prompt missing rewritten query: %q", provider.generatePrompt)
	}
	if strings.Contains(provider.generatePrompt, "sun numbers") {
		t.Errorf("generate prompt still carries the original phrasing: %q", provider.generatePrompt)
	}
}

// rewriteAwareProvider grades a document relevant only once the grading
// prompt carries the rewritten query, and records the prompts it saw.
type rewriteAwareProvider struct {
	rewriteTo      string
	gradePrompts   []string
	generatePrompt string
}

func (p *rewriteAwareProvider) Name() string  { return "rewrite-aware" }
func (p *rewriteAwareProvider) Model() string { return "rewrite-aware-model" }

func (p *rewriteAwareProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	prompt := messages[len(messages)-1].Content
	if strings.Contains(prompt, "improved search phrase") {
		return llm.LLMResponse{Content: p.rewriteTo}, nil
	}
	if strings.Contains(prompt, "knowledge base") {
		p.generatePrompt = prompt
		return llm.LLMResponse{Content: "irradiance answer"}, nil
	}
	return llm.LLMResponse{}, fmt.Errorf("unexpected prompt: %s", prompt)
}

func (p *rewriteAwareProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, format *llm.ResponseFormat) (llm.LLMResponse, error) {
	prompt := messages[len(messages)-1].Content
	p.gradePrompts = append(p.gradePrompts, prompt)
	if strings.Contains(prompt, p.rewriteTo) {
		return llm.LLMResponse{Content: `{"grade": "yes"}`}, nil
	}
	return llm.LLMResponse{Content: `{"grade": "no"}`}, nil
}

func (p *rewriteAwareProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDefinition) (llm.LLMResponse, error) {
	return llm.LLMResponse{}, fmt.Errorf("tools not supported")
}

var _ llm.Provider = (*rewriteAwareProvider)(nil)

func TestPipelineMalformedGradeTreatedAsIrrelevant(t *testing.T) {
	provider := &malformedGradeProvider{}
	retriever := &staticRetriever{docs: []model.Document{{Content: "something", Source: "s.md"}}}
	pipeline := NewPipeline(retriever, llm.NewClient(provider))

	result, err := pipeline.Run(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Answer != NotFoundAnswer {
		t.Errorf("Answer = %q, want fallback after malformed grades", result.Answer)
	}
}

// malformedGradeProvider never produces parseable grading output.
type malformedGradeProvider struct{}

func (p *malformedGradeProvider) Name() string  { return "malformed" }
func (p *malformedGradeProvider) Model() string { return "malformed-model" }

func (p *malformedGradeProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return llm.LLMResponse{Content: "rewritten"}, nil
}

func (p *malformedGradeProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, format *llm.ResponseFormat) (llm.LLMResponse, error) {
	return llm.LLMResponse{Content: "definitely not json"}, nil
}

func (p *malformedGradeProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDefinition) (llm.LLMResponse, error) {
	return llm.LLMResponse{}, fmt.Errorf("tools not supported")
}
