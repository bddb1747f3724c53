// Knowledge base expert tool.

package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/tools"
)

// KnowledgeBaseTool exposes the retrieval workflow as a tool the
// orchestrating agent can call. Each invocation runs an independent
// workflow, so concurrent calls do not share state.
type KnowledgeBaseTool struct {
	tools.BaseTool
	pipeline *Pipeline
}

// NewKnowledgeBaseTool creates the tool over a retriever and client.
func NewKnowledgeBaseTool(retriever Retriever, client *llm.Client) *KnowledgeBaseTool {
	return &KnowledgeBaseTool{pipeline: NewPipeline(retriever, client)}
}

var _ tools.Tool = (*KnowledgeBaseTool)(nil)

// WithTopK sets how many documents each retrieval round fetches.
func (t *KnowledgeBaseTool) WithTopK(topK int) *KnowledgeBaseTool {
	t.pipeline.WithTopK(topK)
	return t
}

// WithMaxRetries sets the query rewrite cap.
func (t *KnowledgeBaseTool) WithMaxRetries(n int) *KnowledgeBaseTool {
	t.pipeline.WithMaxRetries(n)
	return t
}

// Metadata returns the tool metadata.
func (t *KnowledgeBaseTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{
		Name: "knowledge_base",
		Description: "Consult the internal knowledge base for domain facts, archived records and established reference material. " +
			"Do not use it for real-time information, future predictions or casual chat.",
		Parameters: []tools.ToolParameter{
			{Name: "question", ParamType: "string", Description: "The question to answer from the knowledge base", Required: true},
		},
	}
}

type knowledgeBaseArgs struct {
	Question string `json:"question"`
}

// Validate validates the arguments.
func (t *KnowledgeBaseTool) Validate(args json.RawMessage) error {
	var a knowledgeBaseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.Question) == "" {
		return fmt.Errorf("question cannot be empty")
	}
	return nil
}

// Execute runs the retrieval workflow for the question.
func (t *KnowledgeBaseTool) Execute(ctx context.Context, args json.RawMessage) (tools.ToolResult, error) {
	var a knowledgeBaseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tools.FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	result, err := t.pipeline.Run(ctx, a.Question)
	if err != nil {
		return tools.FailureResult(err), nil
	}
	return tools.SuccessResult(result.Answer), nil
}
