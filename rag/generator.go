// Grounded answer generation.

package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
)

// NotFoundAnswer is returned when repeated retrieval found nothing
// relevant. It is a fixed string so the caller never pays for a model call
// that has no context to work with.
const NotFoundAnswer = "I'm sorry, after several retrieval attempts I could not find information related to this question in the knowledge base. Try different keywords or consult another source."

const generatorPrompt = `The user asked: %s

Relevant information retrieved from the knowledge base:
%s

Answer the user's question using only this information.`

// Generator produces the final answer from graded documents.
type Generator struct {
	client *llm.Client
}

// NewGenerator creates a generator over the given client.
func NewGenerator(client *llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate answers the question from the given documents. With no
// documents it returns NotFoundAnswer without calling the model.
func (g *Generator) Generate(ctx context.Context, question string, docs []model.Document) (string, error) {
	if len(docs) == 0 {
		return NotFoundAnswer, nil
	}

	contents := make([]string, 0, len(docs))
	for _, doc := range docs {
		contents = append(contents, doc.Content)
	}
	joined := strings.Join(contents, "\n\n")

	messages := []llm.ChatMessage{
		llm.UserMessage(fmt.Sprintf(generatorPrompt, question, joined)),
	}

	answer, err := g.client.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	return answer, nil
}
