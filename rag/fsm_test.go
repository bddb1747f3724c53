package rag

import "testing"

func TestNext(t *testing.T) {
	tests := []struct {
		name       string
		state      State
		relevant   bool
		retryCount int
		want       State
	}{
		{"retrieve always grades", StateRetrieve, false, 0, StateGrade},
		{"relevant grade generates", StateGrade, true, 0, StateGenerate},
		{"irrelevant grade rewrites", StateGrade, false, 0, StateRewrite},
		{"irrelevant grade rewrites under cap", StateGrade, false, 2, StateRewrite},
		{"irrelevant grade at cap generates", StateGrade, false, 3, StateGenerate},
		{"irrelevant grade past cap generates", StateGrade, false, 4, StateGenerate},
		{"rewrite loops to retrieve", StateRewrite, false, 1, StateRetrieve},
		{"generate finishes", StateGenerate, false, 0, StateDone},
		{"done stays done", StateDone, true, 0, StateDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(tt.state, tt.relevant, tt.retryCount, DefaultMaxRetries)
			if got != tt.want {
				t.Errorf("Next(%s, %v, %d) = %s, want %s", tt.state, tt.relevant, tt.retryCount, got, tt.want)
			}
		})
	}
}

func TestWorkflowTerminates(t *testing.T) {
	// Worst case: grading never finds anything relevant. The walk must
	// still reach done within a bounded number of transitions.
	state := StateRetrieve
	retries := 0
	steps := 0

	for state != StateDone {
		next := Next(state, false, retries, DefaultMaxRetries)
		if state == StateRewrite {
			retries++
		}
		state = next
		steps++
		if steps > 20 {
			t.Fatal("workflow did not terminate")
		}
	}
}
