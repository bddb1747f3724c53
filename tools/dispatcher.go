// Tool Dispatcher - executes the tool calls of one assistant turn.
//
// Information Hiding:
// - Fan-out concurrency hidden from the caller
// - Error-to-text conversion hidden per call
// - Result ordering guarantees encapsulated

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/richinex/pythia/llm"
)

// Dispatcher executes the tool calls requested by a single assistant turn.
//
// Contract: every call produces exactly one tool-result message tagged with
// the originating call id, in the same order the calls arrived. Failures
// never propagate as errors; they become error strings the model can read
// and adapt to. Independent calls run concurrently.
type Dispatcher struct {
	registry *Registry
	executor *Executor
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		executor: NewDefaultExecutor(),
	}
}

// WithExecutor overrides the tool executor (retry/timeout policy).
func (d *Dispatcher) WithExecutor(executor *Executor) *Dispatcher {
	d.executor = executor
	return d
}

// Registry returns the underlying tool registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs all calls and returns one tool-result message per call.
// A turn with zero calls returns nil. Results are inserted by call index,
// so their order matches call-arrival order regardless of completion order.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []llm.ToolCall) []llm.ChatMessage {
	if len(calls) == 0 {
		return nil
	}

	outputs := make([]string, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			outputs[i] = d.run(ctx, call)
		}(i, call)
	}

	wg.Wait()

	results := make([]llm.ChatMessage, len(calls))
	for i, call := range calls {
		results[i] = llm.ToolResultMessage(call.ID, outputs[i])
	}
	return results
}

// run executes one call, converting every failure mode to a result string.
func (d *Dispatcher) run(ctx context.Context, call llm.ToolCall) string {
	tool, exists := d.registry.Get(call.Name)
	if !exists {
		slog.Warn("model requested unknown tool", "tool", call.Name)
		return fmt.Sprintf("Error: tool %q not found", call.Name)
	}

	if err := tool.Validate(call.Arguments); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	result, err := d.executor.Execute(ctx, tool, call.Arguments)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if !result.Success() {
		return fmt.Sprintf("Error: %v", result.Error)
	}
	return result.Output
}
