package harness

// TraceEvent records the scene after one step.
type TraceEvent struct {
	Step      int    `json:"step"`
	Op        string `json:"op"`
	Cubes     int    `json:"cubes"`
	Published int    `json:"published"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every step and assertion succeeded.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends the state after a step.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// Published returns the notifications published over the whole trace.
func (r *Result) Published() int {
	n := 0
	for _, ev := range r.Trace {
		n += ev.Published
	}
	return n
}
