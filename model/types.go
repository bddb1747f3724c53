// Package model provides domain types shared across packages.
package model

// Receipt is the structured final answer produced once per turn by the
// orchestrator's formatting step. It is never mutated after creation.
type Receipt struct {
	// Reason is the model's analysis of the user's latest intent and why a
	// tool was (or was not) used. Omitted for trivial turns.
	Reason string `json:"reason,omitempty" jsonschema_description:"Step-by-step analysis: what is the intent of the latest user message, what history was recalled, and why a tool was or was not called."`

	// Answer is the user-facing text. When the user asked for generated
	// long-form content this must be the complete content itself, never a
	// pointer to it.
	Answer string `json:"answer" jsonschema_description:"The final answer to the user. If the user asked for long-form content (an essay, code, a report), this field must contain the complete content, not a summary of it."`

	// Source lists the citation identifiers used in the answer. Empty when
	// no retrieval was involved.
	Source []string `json:"source" jsonschema_description:"Document names or page identifiers cited in the answer. Leave empty if no documents were used."`
}

// Document is a retrieved passage with its source metadata.
type Document struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}
