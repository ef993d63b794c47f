package workflow

import "time"

// LogStatus classifies a log entry.
type LogStatus string

const (
	// LogInfo is an informational entry.
	LogInfo LogStatus = "info"
	// LogSuccess marks a node that completed.
	LogSuccess LogStatus = "success"
	// LogError marks a node or run failure.
	LogError LogStatus = "error"
)

// LogEntry is one append-only observational record in a run's log stream.
// The input and output fields are small per-kind projections (a resolved
// URL, resolved condition operands); they never affect control flow.
type LogEntry struct {
	NodeID    string    `json:"node_id"`
	Kind      NodeKind  `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Status    LogStatus `json:"status"`
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
}

// ExecutionContext is the mutable state of one run: the variable mapping
// handlers read and write, and the append-only log. It is created once per
// run and touched only by the single active frame, so it carries no lock.
//
// Variable values are strings or numbers; handlers feed data back into the
// graph exclusively by mutating Variables.
type ExecutionContext struct {
	Variables map[string]any
	Logs      []LogEntry
}

// NewExecutionContext creates an execution context seeded with a copy of
// the initial variables.
func NewExecutionContext(initial map[string]any) *ExecutionContext {
	vars := make(map[string]any, len(initial))
	for name, value := range initial {
		vars[name] = value
	}
	return &ExecutionContext{Variables: vars}
}

// AppendLog appends a log entry.
func (ec *ExecutionContext) AppendLog(entry LogEntry) {
	ec.Logs = append(ec.Logs, entry)
}
