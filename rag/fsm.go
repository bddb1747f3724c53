// Package rag implements a self-correcting retrieval workflow.
//
// The workflow retrieves documents, grades each one for relevance, and
// rewrites the search query when nothing relevant came back. Rewrites are
// bounded so the loop always terminates in a generation step, with an
// empty context if retrieval never succeeded.
//
// Information Hiding:
// - State transition rules centralized in one function
// - Grading, rewriting and generation prompts hidden in their own files
package rag

// DefaultMaxRetries bounds how many times the workflow rewrites the query
// before giving up and generating from whatever it has.
const DefaultMaxRetries = 3

// State identifies a step of the retrieval workflow.
type State string

const (
	StateRetrieve State = "retrieve"
	StateGrade    State = "grade"
	StateRewrite  State = "rewrite"
	StateGenerate State = "generate"
	StateDone     State = "done"
)

// Next returns the state that follows the current one. The grade result
// and retry counter only matter when leaving the grade state; every other
// state has a single outgoing edge.
func Next(state State, relevant bool, retryCount, maxRetries int) State {
	switch state {
	case StateRetrieve:
		return StateGrade
	case StateGrade:
		if relevant {
			return StateGenerate
		}
		if retryCount < maxRetries {
			return StateRewrite
		}
		return StateGenerate
	case StateRewrite:
		return StateRetrieve
	case StateGenerate:
		return StateDone
	default:
		return StateDone
	}
}
