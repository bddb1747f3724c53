// Retrieval workflow driver.
//
// Information Hiding:
// - Loop mechanics and per-round state hidden behind Run
// - Step implementations delegated to grader, rewriter and generator

package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
)

// Result carries the outcome of one workflow run.
type Result struct {
	Answer     string
	Documents  []model.Document
	RetryCount int
	// FinalQuery is the question after any rewrites.
	FinalQuery string
}

// Pipeline runs the retrieve, grade, rewrite, generate loop.
type Pipeline struct {
	retriever  Retriever
	grader     *Grader
	rewriter   *Rewriter
	generator  *Generator
	topK       int
	maxRetries int
}

// NewPipeline assembles a workflow over the given retriever and client.
func NewPipeline(retriever Retriever, client *llm.Client) *Pipeline {
	return &Pipeline{
		retriever:  retriever,
		grader:     NewGrader(client),
		rewriter:   NewRewriter(client),
		generator:  NewGenerator(client),
		topK:       DefaultTopK,
		maxRetries: DefaultMaxRetries,
	}
}

// WithTopK overrides how many documents each retrieval round requests.
func (p *Pipeline) WithTopK(topK int) *Pipeline {
	if topK > 0 {
		p.topK = topK
	}
	return p
}

// WithMaxRetries overrides the rewrite cap.
func (p *Pipeline) WithMaxRetries(n int) *Pipeline {
	if n >= 0 {
		p.maxRetries = n
	}
	return p
}

// Run executes the workflow for one question. Every run starts from a
// fresh state, so a pipeline is safe to reuse across questions.
func (p *Pipeline) Run(ctx context.Context, question string) (Result, error) {
	result := Result{FinalQuery: question}
	var docs []model.Document
	state := StateRetrieve

	for state != StateDone {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		switch state {
		case StateRetrieve:
			retrieved, err := p.retriever.Retrieve(ctx, result.FinalQuery, p.topK)
			if err != nil {
				return result, fmt.Errorf("retrieval failed: %w", err)
			}
			docs = retrieved
			state = Next(state, false, result.RetryCount, p.maxRetries)

		case StateGrade:
			relevant, err := p.grader.FilterRelevant(ctx, result.FinalQuery, docs)
			if err != nil {
				return result, err
			}
			docs = relevant
			slog.Debug("graded documents",
				"relevant", len(relevant), "retries", result.RetryCount)
			state = Next(state, len(relevant) > 0, result.RetryCount, p.maxRetries)

		case StateRewrite:
			rewritten, err := p.rewriter.Rewrite(ctx, result.FinalQuery)
			if err != nil {
				return result, err
			}
			slog.Debug("rewrote query", "from", result.FinalQuery, "to", rewritten)
			result.FinalQuery = rewritten
			result.RetryCount++
			state = Next(state, false, result.RetryCount, p.maxRetries)

		case StateGenerate:
			answer, err := p.generator.Generate(ctx, result.FinalQuery, docs)
			if err != nil {
				return result, err
			}
			result.Answer = answer
			result.Documents = docs
			state = Next(state, false, result.RetryCount, p.maxRetries)
		}
	}

	return result, nil
}
