// Turn orchestration.
//
// Information Hiding:
// - Working-set bookkeeping (what is persisted vs produced this turn) hidden
// - State merge timing encapsulated: one atomic merge per turn

package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
	"github.com/richinex/pythia/storage"
	"github.com/richinex/pythia/tools"
)

// TurnResult is what one user turn produces. Receipt is nil when receipt
// formatting failed; Text then carries the last raw answer.
type TurnResult struct {
	Receipt *model.Receipt
	Text    string
}

// Answer returns the user-facing text regardless of formatting outcome.
func (r TurnResult) Answer() string {
	if r.Receipt != nil {
		return r.Receipt.Answer
	}
	return r.Text
}

// Orchestrator runs conversation turns against a thread store.
type Orchestrator struct {
	client        *llm.Client
	dispatcher    *tools.Dispatcher
	store         storage.ThreadStore
	summarizer    *Summarizer
	formatter     *Formatter
	maxIterations int
}

// NewOrchestrator assembles an orchestrator. The dispatcher's registry
// defines which expert tools the model can reach.
func NewOrchestrator(client *llm.Client, dispatcher *tools.Dispatcher, store storage.ThreadStore, summarizer *Summarizer) *Orchestrator {
	return &Orchestrator{
		client:        client,
		dispatcher:    dispatcher,
		store:         store,
		summarizer:    summarizer,
		formatter:     NewFormatter(client),
		maxIterations: DefaultMaxIterations,
	}
}

// WithMaxIterations overrides the decide loop ceiling.
func (o *Orchestrator) WithMaxIterations(n int) *Orchestrator {
	if n > 0 {
		o.maxIterations = n
	}
	return o
}

// turnState tracks what a turn reads and produces. Persisted messages can
// only be deleted; messages produced this turn live in appended until the
// final merge. Deleting an appended message just drops it locally, so the
// store never sees an id it does not hold.
type turnState struct {
	persisted  []llm.ChatMessage
	deleted    map[string]bool
	appended   []llm.ChatMessage
	summary    string
	summarySet bool
}

func newTurnState(state storage.ThreadState) *turnState {
	return &turnState{
		persisted: state.Messages,
		deleted:   make(map[string]bool),
		summary:   state.Summary,
	}
}

func (t *turnState) append(messages ...llm.ChatMessage) {
	t.appended = append(t.appended, messages...)
}

func (t *turnState) setSummary(summary string) {
	t.summary = summary
	t.summarySet = true
}

func (t *turnState) delete(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for _, msg := range t.persisted {
		if drop[msg.ID] {
			t.deleted[msg.ID] = true
			delete(drop, msg.ID)
		}
	}
	if len(drop) == 0 {
		return
	}
	kept := t.appended[:0]
	for _, msg := range t.appended {
		if !drop[msg.ID] {
			kept = append(kept, msg)
		}
	}
	t.appended = kept
}

// working returns the live message window: persisted history minus
// deletions, followed by this turn's messages.
func (t *turnState) working() []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(t.persisted)+len(t.appended))
	for _, msg := range t.persisted {
		if !t.deleted[msg.ID] {
			out = append(out, msg)
		}
	}
	return append(out, t.appended...)
}

// delta renders the turn's accumulated changes for one atomic merge.
func (t *turnState) delta(receipt *model.Receipt) storage.Delta {
	delta := storage.Delta{
		Append:  t.appended,
		Receipt: receipt,
	}
	for id := range t.deleted {
		delta.DeleteIDs = append(delta.DeleteIDs, id)
	}
	if t.summarySet {
		summary := t.summary
		delta.Summary = &summary
	}
	return delta
}

// RunTurn executes one user turn for a thread: load state, compact if
// needed, loop the model over its tools, format the receipt and merge
// everything back into the store.
func (o *Orchestrator) RunTurn(ctx context.Context, threadID, query string) (TurnResult, error) {
	state, err := o.store.Load(ctx, threadID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	turn := newTurnState(state)
	turn.append(llm.UserMessage(query))

	o.summarize(ctx, turn)

	lastContent, err := o.decideLoop(ctx, turn)
	if err != nil {
		return TurnResult{}, err
	}

	receipt := o.format(ctx, turn)

	result := TurnResult{Receipt: receipt, Text: lastContent}
	if err := o.store.Merge(ctx, threadID, turn.delta(receipt)); err != nil {
		return TurnResult{}, fmt.Errorf("failed to persist thread %s: %w", threadID, err)
	}
	return result, nil
}

// summarize compacts the history when it outgrew the budget. A failed
// compaction is logged and skipped; the turn proceeds over the full
// history rather than losing messages without a summary.
func (o *Orchestrator) summarize(ctx context.Context, turn *turnState) {
	compaction, err := o.summarizer.Summarize(ctx, turn.working(), turn.summary)
	if err != nil {
		slog.Warn("history compaction abandoned for this turn", "error", err)
		return
	}
	if compaction == nil {
		return
	}
	turn.delete(compaction.DeleteIDs)
	turn.setSummary(compaction.Summary)
}

// decideLoop runs decide and tools states until the model stops requesting
// tools or the iteration ceiling trips. Returns the last model content.
func (o *Orchestrator) decideLoop(ctx context.Context, turn *turnState) (string, error) {
	definitions := o.dispatcher.Registry().Definitions()
	lastContent := ""
	state := StateDecide

	for iteration := 0; state == StateDecide; iteration++ {
		response, err := o.client.ChatWithTools(ctx, o.promptWindow(turn), definitions)
		if err != nil {
			return "", fmt.Errorf("decide call failed: %w", err)
		}
		lastContent = response.Content

		state = Next(StateDecide, response.HasToolCalls(), iteration, o.maxIterations)
		if state != StateTools {
			if response.HasToolCalls() {
				slog.Warn("iteration ceiling reached, forcing format",
					"iterations", iteration)
			}
			break
		}

		turn.append(llm.AssistantToolCallMessage(response.Content, response.ToolCalls))
		turn.append(o.dispatcher.Dispatch(ctx, response.ToolCalls)...)
		state = Next(StateTools, false, iteration, o.maxIterations)
	}

	if lastContent != "" {
		turn.append(llm.AssistantMessage(lastContent))
	}
	return lastContent, nil
}

// format asks for the structured receipt. Formatting problems do not fail
// the turn; the raw text remains the answer.
func (o *Orchestrator) format(ctx context.Context, turn *turnState) *model.Receipt {
	receipt, err := o.formatter.Format(ctx, o.contextWindow(turn))
	if err != nil {
		slog.Warn("receipt formatting failed, returning raw text", "error", err)
		return nil
	}
	return receipt
}

// promptWindow builds the decide prompt: system instruction, the rolling
// summary when present, then the live history.
func (o *Orchestrator) promptWindow(turn *turnState) []llm.ChatMessage {
	messages := []llm.ChatMessage{llm.SystemMessage(orchestratorPrompt)}
	if turn.summary != "" {
		messages = append(messages, llm.SystemMessage(summaryContextPrefix+turn.summary))
	}
	return append(messages, turn.working()...)
}

// contextWindow is the formatter's view: summary plus history, without the
// orchestration instruction.
func (o *Orchestrator) contextWindow(turn *turnState) []llm.ChatMessage {
	var messages []llm.ChatMessage
	if turn.summary != "" {
		messages = append(messages, llm.SystemMessage(summaryContextPrefix+turn.summary))
	}
	return append(messages, turn.working()...)
}
