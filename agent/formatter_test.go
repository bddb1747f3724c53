package agent

import (
	"encoding/json"
	"testing"
)

func TestReceiptSchemaShape(t *testing.T) {
	var schema struct {
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(ReceiptSchema(), &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if schema.Type != "object" {
		t.Errorf("schema type = %q, want object", schema.Type)
	}
	for _, field := range []string{"reason", "answer", "source"} {
		if _, ok := schema.Properties[field]; !ok {
			t.Errorf("schema missing property %q", field)
		}
	}
	required := map[string]bool{}
	for _, field := range schema.Required {
		required[field] = true
	}
	if !required["answer"] {
		t.Error("answer is not required in the schema")
	}
}
