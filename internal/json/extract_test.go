package json

import (
	"strings"
	"testing"
)

type gradeResult struct {
	Grade string `json:"grade"`
}

func TestPureJSON(t *testing.T) {
	response := `{"grade": "yes"}`
	result, err := ExtractJSONFromResponse[gradeResult](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Grade != "yes" {
		t.Errorf("expected grade 'yes', got '%s'", result.Grade)
	}
}

func TestJSONWithPrefix(t *testing.T) {
	response := `Here is my verdict: {"grade": "no"}`
	result, err := ExtractJSONFromResponse[gradeResult](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Grade != "no" {
		t.Errorf("expected grade 'no', got '%s'", result.Grade)
	}
}

func TestJSONWithSuffixAndPrefix(t *testing.T) {
	response := `Let me think... {"grade": "yes"} Done!`
	result, err := ExtractJSONFromResponse[gradeResult](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Grade != "yes" {
		t.Errorf("expected grade 'yes', got '%s'", result.Grade)
	}
}

func TestMarkdownCodeBlock(t *testing.T) {
	response := "```json\n{\"grade\": \"yes\"}\n```"
	result, err := ExtractJSONFromResponse[gradeResult](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Grade != "yes" {
		t.Errorf("expected grade 'yes', got '%s'", result.Grade)
	}
}

func TestNoJSON(t *testing.T) {
	response := `I am not sure how to answer that.`
	_, err := ExtractJSONFromResponse[gradeResult](response)
	if err == nil {
		t.Fatal("expected error for response without JSON")
	}
	if !strings.Contains(err.Error(), "failed to extract") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestExtractJSONRaw(t *testing.T) {
	raw, err := ExtractJSON(`prefix {"a": 1} suffix`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != `{"a": 1}` {
		t.Errorf("expected extracted object, got %q", raw)
	}
}
