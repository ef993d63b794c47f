package workflow

import "time"

// RunStatus is the status of a run.
type RunStatus string

const (
	// RunStatusRunning indicates the run is in progress.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates the work list drained without error.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusError indicates a handler failure or a tripped iteration cap.
	RunStatusError RunStatus = "error"
	// RunStatusCancelled indicates the run was cancelled cooperatively.
	RunStatusCancelled RunStatus = "cancelled"
)

// StepStatus is the outcome of one recorded step.
type StepStatus string

const (
	// StepSuccess marks a step whose handler returned without error.
	StepSuccess StepStatus = "success"
	// StepError marks the step that terminated the run.
	StepError StepStatus = "error"
	// StepSkipped marks a step the host chose not to dispatch.
	StepSkipped StepStatus = "skipped"
)

// ExecutionStep is one append-only entry in the run's audit trail.
type ExecutionStep struct {
	NodeID    string     `json:"node_id"`
	Kind      NodeKind   `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
	Input     string     `json:"input,omitempty"`
	Output    string     `json:"output,omitempty"`
	Status    StepStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
}

// ExecutionRecord is the persisted audit trail of one run. It is created at
// run start and finalized exactly once, at the run's single terminal
// transition.
type ExecutionRecord struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time,omitempty"`
	Status     RunStatus       `json:"status"`
	Steps      []ExecutionStep `json:"steps"`
	Error      string          `json:"error,omitempty"`
}

// newExecutionRecord creates a run record in the running state.
func newExecutionRecord(runID, workflowID string) *ExecutionRecord {
	return &ExecutionRecord{
		ID:         runID,
		WorkflowID: workflowID,
		StartTime:  time.Now(),
		Status:     RunStatusRunning,
		Steps:      make([]ExecutionStep, 0),
	}
}

// appendStep appends a step to the audit trail.
func (r *ExecutionRecord) appendStep(step ExecutionStep) {
	r.Steps = append(r.Steps, step)
}

// finalize moves the record to its terminal status. It is a no-op when the
// record already left the running state.
func (r *ExecutionRecord) finalize(status RunStatus, err error) {
	if r.Status != RunStatusRunning {
		return
	}
	r.EndTime = time.Now()
	r.Status = status
	if err != nil {
		r.Error = err.Error()
	}
}
