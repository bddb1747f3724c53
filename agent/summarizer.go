// Conversation compaction.
//
// Information Hiding:
// - Cut point selection hidden behind Summarize
// - Tokenizer choice abstracted behind TokenCounter

package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richinex/pythia/llm"
)

// DefaultTokenBudget is the token ceiling for live message history.
const DefaultTokenBudget = 5000

// TokenCounter measures text length in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// Compaction describes one history trim: the messages to delete and the
// summary that replaces them.
type Compaction struct {
	DeleteIDs []string
	Summary   string
}

// Summarizer trims message history to a token budget, folding the removed
// prefix into a rolling summary.
type Summarizer struct {
	client  *llm.Client
	counter TokenCounter
	budget  int
}

// NewSummarizer creates a summarizer with the given budget. A non-positive
// budget falls back to the default.
func NewSummarizer(client *llm.Client, counter TokenCounter, budget int) *Summarizer {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	return &Summarizer{client: client, counter: counter, budget: budget}
}

// Summarize returns the compaction for the given history, or nil when the
// history fits the budget. The trim is single pass: the kept suffix is not
// re-measured against the budget. An error means the compaction must not
// be applied at all; deleting messages without the replacement summary
// would silently lose information.
func (s *Summarizer) Summarize(ctx context.Context, messages []llm.ChatMessage, existingSummary string) (*Compaction, error) {
	total := 0
	for _, msg := range messages {
		total += s.counter.Count(msg.Content)
	}
	if total <= s.budget {
		return nil, nil
	}

	cut := s.cutIndex(messages, total)
	if cut == 0 {
		return nil, nil
	}

	removed := messages[:cut]
	summary, err := s.condense(ctx, removed, existingSummary)
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}

	deleteIDs := make([]string, 0, len(removed))
	for _, msg := range removed {
		deleteIDs = append(deleteIDs, msg.ID)
	}
	slog.Debug("compacting history",
		"total_tokens", total, "budget", s.budget, "removed", len(removed))
	return &Compaction{DeleteIDs: deleteIDs, Summary: summary}, nil
}

// cutIndex finds where to cut so the kept suffix fits the budget. The cut
// never splits a tool call from its result: when the first kept message
// answers a tool call, the cut moves past it.
func (s *Summarizer) cutIndex(messages []llm.ChatMessage, total int) int {
	accumulated := 0
	cut := 0
	for i, msg := range messages {
		accumulated += s.counter.Count(msg.Content)
		if total-accumulated < s.budget {
			cut = i + 1
			break
		}
	}

	// A turn with parallel calls leaves several consecutive results.
	for cut < len(messages) && messages[cut].IsToolResult() {
		cut++
	}
	return cut
}

// condense asks the model for a new summary covering the removed messages
// and anything already in the existing summary.
func (s *Summarizer) condense(ctx context.Context, removed []llm.ChatMessage, existingSummary string) (string, error) {
	prompt := make([]llm.ChatMessage, 0, len(removed)+1)
	prompt = append(prompt, removed...)
	prompt = append(prompt, llm.UserMessage(fmt.Sprintf(summarizerPrompt, existingSummary)))

	summary, err := s.client.Chat(ctx, prompt)
	if err != nil {
		return "", err
	}
	return summary, nil
}
