// Command execution for CLI commands.
//
// Information Hiding:
// - System assembly (provider, stores, experts) hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/richinex/pythia/agent"
	"github.com/richinex/pythia/config"
	"github.com/richinex/pythia/internal/tokens"
	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/rag"
	"github.com/richinex/pythia/search"
	"github.com/richinex/pythia/storage"
	"github.com/richinex/pythia/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	ThreadID string
	DBPath   string
	Verbose  bool
}

// SetupLogging configures the process-wide logger. Verbose enables debug
// records; otherwise only warnings reach the terminal so chat output stays
// readable.
func SetupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// system is the fully wired conversation service.
type system struct {
	orchestrator *agent.Orchestrator
	store        storage.ThreadStore
	closers      []func() error
}

func (s *system) close() {
	for _, closer := range s.closers {
		if err := closer(); err != nil {
			slog.Warn("cleanup failed", "error", err)
		}
	}
}

// buildSystem wires the whole service: provider, tokenizer, vector store,
// expert tools, thread store and orchestrator.
func buildSystem(opts Options) (*system, error) {
	settings, err := config.New(providerOrDefault(opts.Provider))
	if err != nil {
		return nil, err
	}

	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := providerType.Model(settings.LLM.Model).FromEnv()
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(provider)

	counter, err := tokens.NewCounter(settings.Memory.TokenizerModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create token counter: %w", err)
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	retriever, err := rag.NewChromemRetriever(settings.RAG.VectorPath, openAIKey)
	if err != nil {
		return nil, err
	}

	searchAgent, err := search.NewAgent(client, settings.Search.TavilyAPIKey)
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry()
	ragTool := rag.NewKnowledgeBaseTool(retriever, client).
		WithTopK(settings.RAG.TopK).
		WithMaxRetries(settings.RAG.MaxRetries)
	for _, tool := range []tools.Tool{ragTool, search.NewExpertTool(searchAgent)} {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", tool.Metadata().Name, err)
		}
	}

	sys := &system{}
	if opts.DBPath != "" {
		sqlStore, err := storage.OpenSqlite(opts.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open thread database: %w", err)
		}
		sys.store = sqlStore
		sys.closers = append(sys.closers, sqlStore.Close)
	} else {
		sys.store = storage.NewInMemoryStore()
	}

	summarizer := agent.NewSummarizer(client, counter, settings.Memory.TokenBudget)
	sys.orchestrator = agent.NewOrchestrator(client, tools.NewDispatcher(registry), sys.store, summarizer).
		WithMaxIterations(settings.Agent.MaxIterations)
	return sys, nil
}

func providerOrDefault(provider string) string {
	if provider != "" {
		return provider
	}
	if env := os.Getenv("LLM_PROVIDER"); env != "" {
		return env
	}
	return "openai"
}

// Ask runs a single turn and prints the receipt.
func Ask(ctx context.Context, query string, opts Options) error {
	sys, err := buildSystem(opts)
	if err != nil {
		return err
	}
	defer sys.close()

	threadID := opts.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	result, err := sys.orchestrator.RunTurn(ctx, threadID, query)
	if err != nil {
		return err
	}

	printResult(result, opts.Verbose)
	return nil
}

// Chat starts an interactive conversation loop on one thread.
func Chat(ctx context.Context, opts Options) error {
	sys, err := buildSystem(opts)
	if err != nil {
		return err
	}
	defer sys.close()

	threadID := opts.ThreadID
	if threadID == "" {
		threadID = "default"
	}

	state, err := sys.store.Load(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to load thread: %w", err)
	}
	if len(state.Messages) > 0 {
		fmt.Printf("Resuming thread '%s' (%d messages)\n\n", threadID, len(state.Messages))
	}

	fmt.Println("Type 'exit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		result, err := sys.orchestrator.RunTurn(ctx, threadID, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			continue
		}

		fmt.Println()
		printResult(result, opts.Verbose)
		fmt.Println()
	}

	return scanner.Err()
}

// Index ingests a directory of documents into the vector store.
func Index(ctx context.Context, docsPath string, opts Options) error {
	settings, err := config.New(providerOrDefault(opts.Provider))
	if err != nil {
		return err
	}
	if docsPath == "" {
		docsPath = settings.RAG.DocsPath
	}
	if docsPath == "" {
		return fmt.Errorf("no documents directory given (flag or RAG_DOCS_PATH)")
	}

	counter, err := tokens.NewCounter(settings.Memory.TokenizerModel)
	if err != nil {
		return fmt.Errorf("failed to create token counter: %w", err)
	}

	retriever, err := rag.NewChromemRetriever(settings.RAG.VectorPath, os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		return err
	}

	indexer := rag.NewIndexer(retriever, counter)
	count, err := indexer.IndexDirectory(ctx, docsPath)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d chunks from %s (%d documents stored)\n", count, docsPath, retriever.Count())
	return nil
}

// ListTools lists all available tools.
func ListTools(verbose bool) {
	registry := tools.NewRegistry()

	// Register default tools (errors ignored - no duplicates in this list)
	_ = registry.Register(tools.NewClockTool())
	_ = registry.Register(tools.NewCalculatorTool())
	_ = registry.Register(tools.NewWebpageTool(30))
	_ = registry.Register(tools.NewWebSearchTool(""))
	_ = registry.Register(rag.NewKnowledgeBaseTool(nil, nil))
	_ = registry.Register(search.NewExpertTool(nil))

	fmt.Println("Available tools:")
	fmt.Println()

	for _, meta := range registry.List() {
		fmt.Printf("  %s\n", meta.Name)
		fmt.Printf("    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Println("    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Printf("      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Println()
	}
}

// printResult renders a turn result for the terminal.
func printResult(result agent.TurnResult, verbose bool) {
	if result.Receipt == nil {
		fmt.Println(result.Text)
		return
	}

	fmt.Println(result.Receipt.Answer)
	if len(result.Receipt.Source) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(result.Receipt.Source, ", "))
	}
	if verbose && result.Receipt.Reason != "" {
		fmt.Printf("\nReasoning: %s\n", result.Receipt.Reason)
	}
}
