package storage

import (
	"context"
	"testing"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
)

func TestInMemoryStoreMergeAndLoad(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	delta := Delta{
		Append: []llm.ChatMessage{
			{ID: "m1", Role: "user", Content: "Hello"},
			{ID: "m2", Role: "assistant", Content: "Hi there"},
		},
	}

	if err := store.Merge(ctx, "thread-a", delta); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	state, err := store.Load(ctx, "thread-a")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(state.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(state.Messages))
	}
	if state.Messages[0].Content != "Hello" {
		t.Errorf("expected 'Hello', got '%s'", state.Messages[0].Content)
	}
	if state.Messages[1].Content != "Hi there" {
		t.Errorf("expected 'Hi there', got '%s'", state.Messages[1].Content)
	}
}

func TestInMemoryStoreLoadNonexistentThread(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	state, err := store.Load(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(state.Messages) != 0 || state.Summary != "" || state.Receipt != nil {
		t.Errorf("expected zero state, got %+v", state)
	}
}

func TestInMemoryStoreDeleteByID(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Merge(ctx, "thread-a", Delta{
		Append: []llm.ChatMessage{
			{ID: "m1", Role: "user", Content: "first"},
			{ID: "m2", Role: "assistant", Content: "second"},
			{ID: "m3", Role: "user", Content: "third"},
		},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if err := store.Merge(ctx, "thread-a", Delta{DeleteIDs: []string{"m1", "m2"}}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	state, err := store.Load(ctx, "thread-a")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(state.Messages) != 1 {
		t.Fatalf("expected 1 message after delete, got %d", len(state.Messages))
	}
	if state.Messages[0].ID != "m3" {
		t.Errorf("expected m3 to survive, got %s", state.Messages[0].ID)
	}
}

func TestInMemoryStoreSummaryAndReceipt(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	summary := "user asked about the weather"
	receipt := &model.Receipt{Answer: "sunny", Source: []string{"forecast.txt"}}

	if err := store.Merge(ctx, "thread-a", Delta{Summary: &summary, Receipt: receipt}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	state, err := store.Load(ctx, "thread-a")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.Summary != summary {
		t.Errorf("expected summary %q, got %q", summary, state.Summary)
	}
	if state.Receipt == nil || state.Receipt.Answer != "sunny" {
		t.Errorf("expected receipt to round-trip, got %+v", state.Receipt)
	}
}

func TestInMemoryStoreThreadIsolation(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Merge(ctx, "thread-a", Delta{
		Append: []llm.ChatMessage{{ID: "a1", Role: "user", Content: "for a"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := store.Merge(ctx, "thread-b", Delta{
		Append: []llm.ChatMessage{{ID: "b1", Role: "user", Content: "for b"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	stateA, _ := store.Load(ctx, "thread-a")
	stateB, _ := store.Load(ctx, "thread-b")

	if len(stateA.Messages) != 1 || stateA.Messages[0].ID != "a1" {
		t.Errorf("thread-a state leaked: %+v", stateA.Messages)
	}
	if len(stateB.Messages) != 1 || stateB.Messages[0].ID != "b1" {
		t.Errorf("thread-b state leaked: %+v", stateB.Messages)
	}

	if err := store.Delete(ctx, "thread-a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	stateA, _ = store.Load(ctx, "thread-a")
	if len(stateA.Messages) != 0 {
		t.Error("expected thread-a to be gone after delete")
	}
	stateB, _ = store.Load(ctx, "thread-b")
	if len(stateB.Messages) != 1 {
		t.Error("delete of thread-a must not touch thread-b")
	}
}

func TestInMemoryStoreLoadReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Merge(ctx, "thread-a", Delta{
		Append: []llm.ChatMessage{{ID: "m1", Role: "user", Content: "original"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	state, _ := store.Load(ctx, "thread-a")
	state.Messages[0].Content = "mutated"

	reloaded, _ := store.Load(ctx, "thread-a")
	if reloaded.Messages[0].Content != "original" {
		t.Error("external mutation leaked into the store")
	}
}
