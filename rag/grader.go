// Document relevance grading.

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	internaljson "github.com/richinex/pythia/internal/json"
	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
)

const graderPrompt = `You are a strict relevance reviewer.

User question: %s

Retrieved document:
%s

Does this document actually answer the question? Respond with JSON only:
{"grade": "yes"} if it does, {"grade": "no"} if it does not.`

type gradeResult struct {
	Grade string `json:"grade"`
}

// Grader labels retrieved documents as relevant or irrelevant.
type Grader struct {
	client *llm.Client
}

// NewGrader creates a grader over the given client.
func NewGrader(client *llm.Client) *Grader {
	return &Grader{client: client}
}

// FilterRelevant grades each document independently and returns the subset
// graded relevant. A malformed grading response marks that document
// irrelevant instead of failing the whole batch.
func (g *Grader) FilterRelevant(ctx context.Context, question string, docs []model.Document) ([]model.Document, error) {
	var relevant []model.Document
	for _, doc := range docs {
		ok, err := g.grade(ctx, question, doc)
		if err != nil {
			return nil, err
		}
		if ok {
			relevant = append(relevant, doc)
		}
	}
	return relevant, nil
}

// grade labels a single document. Only a clear "yes" counts as relevant.
func (g *Grader) grade(ctx context.Context, question string, doc model.Document) (bool, error) {
	messages := []llm.ChatMessage{
		llm.UserMessage(fmt.Sprintf(graderPrompt, question, doc.Content)),
	}

	response, err := g.client.ChatWithFormat(ctx, messages, llm.NewJSONObjectFormat())
	if err != nil {
		return false, fmt.Errorf("grading call failed: %w", err)
	}

	result, err := internaljson.ExtractJSONFromResponse[gradeResult](response)
	if err != nil {
		slog.Warn("grader returned malformed output, treating document as irrelevant",
			"source", doc.Source, "response", response)
		return false, nil
	}
	return strings.EqualFold(strings.TrimSpace(result.Grade), "yes"), nil
}
