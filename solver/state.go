package solver

// RunState is one of the orchestration states a run moves through.
// Transitions are strictly sequential within a run; Chaining loops the
// pipeline back to Fetching with the next quiz URL.
type RunState string

const (
	StateIdle         RunState = "idle"
	StateVerifying    RunState = "verifying"
	StateFetching     RunState = "fetching"
	StateInterpreting RunState = "interpreting"
	StateRetrieving   RunState = "retrieving"
	StateComputing    RunState = "computing"
	StateSubmitting   RunState = "submitting"
	StateChaining     RunState = "chaining"
	StateDone         RunState = "done"
	StateFailed       RunState = "failed"
)

func (s RunState) String() string { return string(s) }

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}
