// Package main provides the pythia CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/richinex/pythia/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider string
	threadID string
	dbPath   string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "pythia",
		Short: "Conversational QA with self-correcting retrieval",
		Long: `A conversational question answering service that routes each turn
between an internal knowledge base and web research experts.

The knowledge base expert runs a self-correcting retrieval loop (retrieve,
grade, rewrite) over an embedded vector store. Long conversations are
compacted into a rolling summary so threads never outgrow the model's
context window.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.SetupLogging(verbose)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVar(&threadID, "thread", "", "Thread ID for conversation persistence")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite path for thread storage (in-memory when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logging and receipt reasoning")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider: provider,
		ThreadID: threadID,
		DBPath:   dbPath,
		Verbose:  verbose,
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Long: `Run one conversation turn and print the structured answer.

With --thread the turn joins an existing conversation and its history;
without it the question runs on a fresh throwaway thread.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(context.Background(), args[0], options())
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation on one thread.

With --db the thread survives restarts; resuming the same --thread picks
the conversation up where it left off, including the rolling summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), options())
		},
	}
}

func indexCmd() *cobra.Command {
	var docsPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Ingest documents into the knowledge base",
		Long: `Chunk and embed a directory of .txt and .md files into the vector
store the knowledge base expert retrieves from.

Set RAG_VECTOR_PATH to persist the store on disk; otherwise the index
lives only for the current process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Index(context.Background(), docsPath, options())
		},
	}

	cmd.Flags().StringVar(&docsPath, "docs", "", "Directory of documents to ingest")
	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.ListTools(verboseTools)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}
