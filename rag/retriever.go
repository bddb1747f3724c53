// Vector store backed retrieval.
//
// Information Hiding:
// - Vector database choice and embedding calls hidden behind Retriever
// - Collection management and persistence encapsulated

package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/richinex/pythia/model"
)

// DefaultTopK is how many documents a single retrieval round returns.
const DefaultTopK = 4

// Retriever finds documents relevant to a query.
type Retriever interface {
	// Retrieve returns up to topK documents ranked by similarity.
	// An empty result is not an error.
	Retrieve(ctx context.Context, query string, topK int) ([]model.Document, error)
}

// ChromemRetriever is a Retriever over an embedded chromem vector store.
// Embeddings are computed through the configured embedding function, so
// both indexing and querying need network access to the embedding API.
type ChromemRetriever struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemRetriever opens or creates a vector store. With an empty path
// the store lives in memory only, which suits tests and one-off sessions.
func NewChromemRetriever(path, openAIKey string) (*ChromemRetriever, error) {
	var db *chromem.DB
	var err error

	if path != "" {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store at %s: %w", path, err)
		}
	} else {
		db = chromem.NewDB()
	}

	embed := chromem.NewEmbeddingFuncOpenAI(openAIKey, chromem.EmbeddingModelOpenAI3Small)
	collection, err := db.GetOrCreateCollection("knowledge", nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge collection: %w", err)
	}

	return &ChromemRetriever{db: db, collection: collection}, nil
}

var _ Retriever = (*ChromemRetriever)(nil)

// Add embeds and stores documents in the knowledge collection.
func (r *ChromemRetriever) Add(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}

	converted := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		converted = append(converted, chromem.Document{
			ID:       uuid.NewString(),
			Content:  doc.Content,
			Metadata: map[string]string{"source": doc.Source},
		})
	}

	if err := r.collection.AddDocuments(ctx, converted, 4); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (r *ChromemRetriever) Count() int {
	return r.collection.Count()
}

// Retrieve embeds the query and returns the topK most similar documents.
func (r *ChromemRetriever) Retrieve(ctx context.Context, query string, topK int) ([]model.Document, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	// chromem rejects queries asking for more results than stored documents.
	if count := r.collection.Count(); count < topK {
		if count == 0 {
			return nil, nil
		}
		topK = count
	}

	results, err := r.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	docs := make([]model.Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, model.Document{
			Content: res.Content,
			Source:  res.Metadata["source"],
		})
	}
	slog.Debug("retrieved documents", "query", query, "count", len(docs))
	return docs, nil
}
