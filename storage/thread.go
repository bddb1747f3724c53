// Package storage provides the durable per-thread conversation store.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without changing node logic
// - Each implementation encapsulates its own data structures and protocols

package storage

import (
	"context"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
)

// ThreadState is the durable state of one conversation thread.
type ThreadState struct {
	// Messages is the live history in causal order. Append-only except for
	// explicit compaction deletions.
	Messages []llm.ChatMessage

	// Summary is the rolling digest of removed messages. Each compaction
	// replaces it wholesale with a summary that subsumes the old one.
	Summary string

	// Receipt is the structured answer of the most recent turn, overwritten
	// each turn by the formatting step.
	Receipt *model.Receipt
}

// Clone returns a deep-enough copy so callers can't mutate stored state.
func (s ThreadState) Clone() ThreadState {
	cloned := ThreadState{Summary: s.Summary}
	cloned.Messages = make([]llm.ChatMessage, len(s.Messages))
	copy(cloned.Messages, s.Messages)
	if s.Receipt != nil {
		r := *s.Receipt
		cloned.Receipt = &r
	}
	return cloned
}

// Delta is the set of state changes produced by one orchestrator turn.
// A turn accumulates its delta in memory and merges it once at the end, so a
// failed turn leaves the stored thread untouched.
type Delta struct {
	// Append adds messages to the end of the live history.
	Append []llm.ChatMessage

	// DeleteIDs removes messages by id (compaction).
	DeleteIDs []string

	// Summary replaces the rolling summary when non-nil.
	Summary *string

	// Receipt sets the structured answer when non-nil.
	Receipt *model.Receipt
}

// IsEmpty reports whether the delta changes nothing.
func (d Delta) IsEmpty() bool {
	return len(d.Append) == 0 && len(d.DeleteIDs) == 0 && d.Summary == nil && d.Receipt == nil
}

// Merge folds another delta into this one, preserving operation order:
// deletions accumulate, appends accumulate, later summary/receipt wins.
func (d *Delta) Merge(other Delta) {
	d.Append = append(d.Append, other.Append...)
	d.DeleteIDs = append(d.DeleteIDs, other.DeleteIDs...)
	if other.Summary != nil {
		d.Summary = other.Summary
	}
	if other.Receipt != nil {
		d.Receipt = other.Receipt
	}
}

// Apply returns the state after applying the delta. Deletions run before
// appends so a compaction delta never removes messages it just added.
func (d Delta) Apply(state ThreadState) ThreadState {
	result := state.Clone()

	if len(d.DeleteIDs) > 0 {
		doomed := make(map[string]bool, len(d.DeleteIDs))
		for _, id := range d.DeleteIDs {
			doomed[id] = true
		}
		kept := result.Messages[:0]
		for _, msg := range result.Messages {
			if !doomed[msg.ID] {
				kept = append(kept, msg)
			}
		}
		result.Messages = kept
	}

	result.Messages = append(result.Messages, d.Append...)

	if d.Summary != nil {
		result.Summary = *d.Summary
	}
	if d.Receipt != nil {
		r := *d.Receipt
		result.Receipt = &r
	}
	return result
}

// ThreadStore defines the interface for per-thread conversation state.
// Implementations must support concurrent access to distinct thread ids
// without cross-thread interference, and Merge must be atomic per call.
type ThreadStore interface {
	// Load loads the state for a thread.
	// Returns a zero ThreadState (not an error) if the thread doesn't exist.
	Load(ctx context.Context, threadID string) (ThreadState, error)

	// Merge atomically applies a turn's delta to the thread.
	Merge(ctx context.Context, threadID string, delta Delta) error

	// Delete removes all state for a thread.
	Delete(ctx context.Context, threadID string) error

	// ListThreads lists all known thread IDs.
	ListThreads(ctx context.Context) ([]string, error)
}
