// Receipt formatting.
//
// Information Hiding:
// - Schema generation and caching hidden
// - Fallback policy on malformed output encapsulated

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/invopop/jsonschema"

	internaljson "github.com/richinex/pythia/internal/json"
	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
)

var (
	receiptSchemaOnce sync.Once
	receiptSchema     json.RawMessage
)

// ReceiptSchema returns the JSON schema for the receipt, generated once
// from the struct definition.
func ReceiptSchema() json.RawMessage {
	receiptSchemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		schema := reflector.Reflect(&model.Receipt{})
		data, err := json.Marshal(schema)
		if err != nil {
			// The receipt type is static, so this cannot happen at runtime.
			panic(fmt.Sprintf("failed to marshal receipt schema: %v", err))
		}
		receiptSchema = data
	})
	return receiptSchema
}

// Formatter re-expresses the final free-text turn as a receipt.
type Formatter struct {
	client *llm.Client
}

// NewFormatter creates a formatter over the given client.
func NewFormatter(client *llm.Client) *Formatter {
	return &Formatter{client: client}
}

// Format asks the model for a schema-conforming receipt over the turn's
// messages. A nil receipt with a nil error means the output was malformed
// and the caller should fall back to the raw text.
func (f *Formatter) Format(ctx context.Context, messages []llm.ChatMessage) (*model.Receipt, error) {
	prompt := make([]llm.ChatMessage, 0, len(messages)+1)
	prompt = append(prompt, messages...)
	prompt = append(prompt, llm.UserMessage(formatterPrompt))

	format := llm.NewJSONSchemaFormat("receipt", ReceiptSchema())
	response, err := f.client.ChatWithFormat(ctx, prompt, format)
	if err != nil {
		return nil, fmt.Errorf("formatting call failed: %w", err)
	}

	receipt, err := internaljson.ExtractJSONFromResponse[model.Receipt](response)
	if err != nil {
		slog.Warn("formatter returned malformed receipt, falling back to raw text",
			"error", err)
		return nil, nil
	}
	return &receipt, nil
}
