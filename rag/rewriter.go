// Query rewriting after failed retrieval.

package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/pythia/llm"
)

const rewriterPrompt = `The user asked: %s

The first retrieval attempt found nothing relevant.
Analyze the intent of the question and produce one improved search phrase
better suited for retrieval. Output only the search phrase, no explanation.`

// Rewriter turns a question that retrieved nothing into a better query.
type Rewriter struct {
	client *llm.Client
}

// NewRewriter creates a rewriter over the given client.
func NewRewriter(client *llm.Client) *Rewriter {
	return &Rewriter{client: client}
}

// Rewrite asks the model for an improved search phrase. The original
// question is returned unchanged if the model produces nothing usable.
func (r *Rewriter) Rewrite(ctx context.Context, question string) (string, error) {
	messages := []llm.ChatMessage{
		llm.UserMessage(fmt.Sprintf(rewriterPrompt, question)),
	}

	response, err := r.client.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("rewrite call failed: %w", err)
	}

	rewritten := strings.Trim(strings.TrimSpace(response), `"`)
	if rewritten == "" {
		return question, nil
	}
	return rewritten, nil
}
