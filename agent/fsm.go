// Package agent implements the top-level conversation orchestrator.
//
// A user turn runs a fixed sequence of steps: compact the history if it
// outgrew its token budget, let the model decide between answering and
// calling tools, dispatch any requested tools, and finally re-express the
// answer as a structured receipt. All state produced by a turn is merged
// into the thread store atomically before the turn returns.
//
// Information Hiding:
// - Step sequencing centralized in a pure transition function
// - Prompt construction, compaction and formatting hidden in their own files
package agent

// DefaultMaxIterations caps the decide and act loop of one turn. A model
// that keeps requesting tools past the cap is cut off and the turn proceeds
// to formatting with whatever content exists.
const DefaultMaxIterations = 10

// State identifies a step of a conversation turn.
type State string

const (
	StateSummarize State = "summarize"
	StateDecide    State = "decide"
	StateTools     State = "tools"
	StateFormat    State = "format"
	StateEnd       State = "end"
)

// Next returns the state that follows the current one. Whether the model
// requested tools and how many decide rounds have run only matter when
// leaving the decide state.
func Next(state State, hasToolCalls bool, iteration, maxIterations int) State {
	switch state {
	case StateSummarize:
		return StateDecide
	case StateDecide:
		if hasToolCalls && iteration < maxIterations {
			return StateTools
		}
		return StateFormat
	case StateTools:
		return StateDecide
	case StateFormat:
		return StateEnd
	default:
		return StateEnd
	}
}
