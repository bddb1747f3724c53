// Document ingestion and chunking.
//
// Information Hiding:
// - File discovery and chunking policy hidden behind IndexDirectory
// - Token-based chunk sizing encapsulated

package rag

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/richinex/pythia/model"
)

const (
	chunkTokens   = 500
	overlapTokens = 50
)

var indexableExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// TokenCounter measures text length in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// documentStore is the retriever-side surface the indexer writes to.
type documentStore interface {
	Add(ctx context.Context, docs []model.Document) error
}

// Indexer loads text files into a vector store.
type Indexer struct {
	store   documentStore
	counter TokenCounter
}

// NewIndexer creates an indexer over the given store. The counter sizes
// chunks by token count rather than bytes.
func NewIndexer(store documentStore, counter TokenCounter) *Indexer {
	return &Indexer{store: store, counter: counter}
}

// IndexDirectory walks root, chunks every .txt and .md file and stores the
// chunks. Returns the number of chunks indexed.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string) (int, error) {
	var docs []model.Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !indexableExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		chunks := ix.chunk(string(content))
		for _, chunk := range chunks {
			docs = append(docs, model.Document{Content: chunk, Source: rel})
		}
		slog.Info("indexed file", "path", rel, "chunks", len(chunks))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	if err := ix.store.Add(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// chunk splits text into token-bounded pieces. Paragraphs are kept whole
// when possible; an oversized paragraph is split on sentence boundaries.
// Consecutive chunks share a small overlap so context is not lost at the
// seam.
func (ix *Indexer) chunk(text string) []string {
	paragraphs := splitParagraphs(text)

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, "\n\n"))
		// Carry the tail paragraph forward as overlap when it is small.
		tail := current[len(current)-1]
		if t := ix.counter.Count(tail); t <= overlapTokens {
			current = []string{tail}
			currentTokens = t
		} else {
			current = nil
			currentTokens = 0
		}
	}

	for _, para := range paragraphs {
		t := ix.counter.Count(para)
		if t > chunkTokens {
			flush()
			chunks = append(chunks, ix.splitLongParagraph(para)...)
			current = nil
			currentTokens = 0
			continue
		}
		if currentTokens+t > chunkTokens {
			flush()
		}
		current = append(current, para)
		currentTokens += t
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}
	return chunks
}

// splitLongParagraph breaks one oversized paragraph on sentence endings.
func (ix *Indexer) splitLongParagraph(para string) []string {
	sentences := splitSentences(para)

	var chunks []string
	var current []string
	currentTokens := 0

	for _, sentence := range sentences {
		t := ix.counter.Count(sentence)
		if currentTokens+t > chunkTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentTokens = 0
		}
		current = append(current, sentence)
		currentTokens += t
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

func splitParagraphs(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	var sb strings.Builder
	for _, r := range text {
		sb.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(sb.String()); s != "" {
				out = append(out, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		out = append(out, s)
	}
	return out
}
