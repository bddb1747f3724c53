// Package search implements a web search sub-agent.
//
// The sub-agent runs its own decide and act loop over a small set of
// internet-facing tools: web search, page scraping, a calculator and a
// clock. It is exposed to the orchestrating agent as a single expert tool,
// so its internal tool traffic never reaches the conversation history.
//
// Information Hiding:
// - Tool loop mechanics hidden behind Run
// - Tool set assembly encapsulated in the constructor
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/tools"
)

// maxRounds bounds the decide and act loop of a single task.
const maxRounds = 8

const systemPrompt = `You are a research assistant with access to web search,
webpage scraping, a calculator and the current time. Use the tools to gather
facts before answering. When the user's question involves "today", "tomorrow"
or other relative dates, call get_current_time first. When a search result
needs detail, scrape the page. Answer concisely once you have what you need.`

// Agent answers research tasks through a bounded tool loop.
type Agent struct {
	client     *llm.Client
	dispatcher *tools.Dispatcher
}

// NewAgent builds the sub-agent with its standard tool set. The Tavily API
// key may be empty, in which case web search reports itself unconfigured
// and the remaining tools still work.
func NewAgent(client *llm.Client, tavilyKey string) (*Agent, error) {
	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewWebSearchTool(tavilyKey),
		tools.NewWebpageTool(30),
		tools.NewCalculatorTool(),
		tools.NewClockTool(),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", tool.Metadata().Name, err)
		}
	}

	return &Agent{
		client:     client,
		dispatcher: tools.NewDispatcher(registry),
	}, nil
}

// Run executes one research task in isolation. Tool traffic stays local to
// the call; only the final answer is returned.
func (a *Agent) Run(ctx context.Context, task string) (string, error) {
	messages := []llm.ChatMessage{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(task),
	}
	definitions := a.dispatcher.Registry().Definitions()

	for round := 0; round < maxRounds; round++ {
		response, err := a.client.ChatWithTools(ctx, messages, definitions)
		if err != nil {
			return "", fmt.Errorf("search agent call failed: %w", err)
		}

		if !response.HasToolCalls() {
			return response.Content, nil
		}

		slog.Debug("search agent dispatching tools",
			"round", round, "calls", len(response.ToolCalls))
		messages = append(messages, llm.AssistantToolCallMessage(response.Content, response.ToolCalls))
		messages = append(messages, a.dispatcher.Dispatch(ctx, response.ToolCalls)...)
	}

	// The round cap was hit; ask for a final answer without tools.
	messages = append(messages, llm.UserMessage("Answer now with what you have gathered so far."))
	answer, err := a.client.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("search agent final answer failed: %w", err)
	}
	return answer, nil
}
