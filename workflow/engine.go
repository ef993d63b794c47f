package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/skeinflow/skein/internal/metrics"
	"github.com/skeinflow/skein/workflow/expr"
)

// Engine drives workflow runs: an iterative, cancellable state machine that
// pops one frame at a time from an explicit work list and dispatches it to
// the kind's handler. Exactly one frame is ever in flight per run; the
// engine itself is safe to share across concurrent runs because all run
// state lives in locals.
type Engine struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	handlers      map[NodeKind]Handler
	collector     *metrics.Collector
	history       *HistoryStore
	maxIterations int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHandler registers (or overrides) the handler for a node kind.
func WithHandler(kind NodeKind, handler Handler) EngineOption {
	return func(e *Engine) {
		e.handlers[kind] = handler
	}
}

// WithHistory attaches a store that receives every finalized run record.
func WithHistory(store *HistoryStore) EngineOption {
	return func(e *Engine) {
		e.history = store
	}
}

// WithMetrics attaches a Prometheus collector.
func WithMetrics(collector *metrics.Collector) EngineOption {
	return func(e *Engine) {
		e.collector = collector
	}
}

// WithConfig applies engine settings.
func WithConfig(cfg EngineConfig) EngineOption {
	return func(e *Engine) {
		e.maxIterations = cfg.normalize().MaxIterations
	}
}

// NewMetricsCollector registers the engine metrics with reg and returns the
// collector to pass to WithMetrics.
func NewMetricsCollector(namespace string, reg prometheus.Registerer) *metrics.Collector {
	return metrics.NewCollector(namespace, reg)
}

// NewEngine creates an engine with the built-in handlers registered. A nil
// logger is replaced with a no-op logger.
func NewEngine(logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:        logger.With(zap.String("component", "engine")),
		tracer:        otel.Tracer("github.com/skeinflow/skein/workflow"),
		handlers:      builtinHandlers(),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOptions carries per-run settings. All fields are optional.
type RunOptions struct {
	// RunID identifies the run; a UUID is generated when empty.
	RunID string
	// WorkflowName is the display name recorded on the run record.
	WorkflowName string
	// OnLog is invoked once per log entry as it is produced, for live
	// display. It is a side channel: the same entries appear in the
	// returned context's log.
	OnLog func(LogEntry)
	// Prompts supplies the human-in-the-loop callbacks.
	Prompts *PromptCallbacks
}

// run is the per-run mutable state. It exists so concurrent runs on one
// engine never share anything mutable.
type run struct {
	engine *Engine
	wf     *Workflow
	ec     *ExecutionContext
	record *ExecutionRecord
	svc    *ServiceContext
	opts   *RunOptions
	logger *zap.Logger

	stack          []string
	frames         int
	loopIterations map[string]int
}

// Execute runs a workflow to a terminal state and returns the final
// execution context and the run record. Run-time failures never propagate
// as errors: the record always reaches exactly one of the completed, error,
// or cancelled states, so batch callers can inspect status and steps
// without error handling. Cancellation is cooperative: ctx is polled at
// each frame boundary and forwarded into handlers for mid-call abort.
func (e *Engine) Execute(ctx context.Context, wf *Workflow, initial map[string]any, svc *ServiceContext, opts *RunOptions) (*ExecutionContext, *ExecutionRecord) {
	if opts == nil {
		opts = &RunOptions{}
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	r := &run{
		engine:         e,
		wf:             wf,
		ec:             NewExecutionContext(initial),
		record:         newExecutionRecord(runID, opts.WorkflowName),
		svc:            svc,
		opts:           opts,
		logger:         e.logger.With(zap.String("run_id", runID)),
		loopIterations: make(map[string]int),
	}

	ctx, span := e.tracer.Start(ctx, "workflow.execute",
		trace.WithAttributes(
			attribute.String("workflow.run_id", runID),
			attribute.String("workflow.name", opts.WorkflowName),
		),
	)
	defer span.End()

	r.logger.Info("starting run",
		zap.String("workflow", opts.WorkflowName),
		zap.Int("nodes", wfLen(wf)),
	)

	status, err := r.execute(ctx)
	r.finish(status, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return r.ec, r.record
}

func wfLen(wf *Workflow) int {
	if wf == nil {
		return 0
	}
	return wf.Len()
}

// execute drives the work list to a terminal state.
func (r *run) execute(ctx context.Context) (RunStatus, error) {
	if r.wf == nil || r.wf.Start() == "" {
		err := NewError(ErrHandlerFailed, "workflow has no start node")
		r.emitSystemLog(err.Error())
		return RunStatusError, err
	}

	r.stack = append(r.stack, r.wf.Start())

	for len(r.stack) > 0 {
		if ctx.Err() != nil {
			r.logger.Info("run cancelled", zap.Int("frames", r.frames))
			return RunStatusCancelled, nil
		}

		id := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]

		node, ok := r.wf.Node(id)
		if !ok {
			// The frame may reference a node that no longer exists;
			// that is not an error, the frame is simply dropped.
			r.logger.Debug("skipping missing node", zap.String("node_id", id))
			continue
		}

		r.frames++
		r.engine.collector.FrameProcessed()
		if r.frames >= r.engine.maxIterations {
			err := NewError(ErrRunawayGuard,
				"run exceeded %d frames; terminating", r.engine.maxIterations)
			r.emitSystemLog(err.Error())
			return RunStatusError, err
		}

		if err := r.processFrame(ctx, node); err != nil {
			return RunStatusError, err
		}
	}

	return RunStatusCompleted, nil
}

// processFrame dispatches one node and pushes its successors. A non-nil
// return terminates the run with error status.
func (r *run) processFrame(ctx context.Context, node *Node) error {
	frameCtx, span := r.engine.tracer.Start(ctx, "workflow.node",
		trace.WithAttributes(
			attribute.String("node.id", node.ID),
			attribute.String("node.kind", string(node.Kind)),
		),
	)
	defer span.End()

	r.logger.Debug("executing node",
		zap.String("node_id", node.ID),
		zap.String("kind", string(node.Kind)),
	)

	var (
		result *HandlerResult
		cond   *bool
		err    error
	)
	start := time.Now()
	if node.Kind.Conditional() {
		result, cond, err = r.evalConditional(node)
	} else {
		result, err = r.dispatch(frameCtx, node)
	}
	r.engine.collector.ObserveHandler(string(node.Kind), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.emitFailure(node, result, err)
		return err
	}

	r.emitSuccess(node, result)

	if node.Kind == KindLoop {
		if bookErr := r.bookLoop(node.ID, *cond); bookErr != nil {
			return bookErr
		}
	}

	// Push successors in reverse so the first successor is processed
	// next, preserving depth-first branch order without recursion.
	next := NextNodes(r.wf, node.ID, cond)
	for i := len(next) - 1; i >= 0; i-- {
		r.stack = append(r.stack, next[i])
	}
	return nil
}

// dispatch routes a non-conditional node to its registered handler.
func (r *run) dispatch(ctx context.Context, node *Node) (*HandlerResult, error) {
	handler, registered := r.engine.handlers[node.Kind]
	if !registered {
		return nil, NewError(ErrHandlerNotRegistered,
			"no handler registered for kind %s", node.Kind).WithNode(node.ID)
	}
	return handler(ctx, node, r.ec, r.svc, r.opts.Prompts)
}

// evalConditional evaluates a branch or loop node's condition and builds
// its audit projection (the resolved operands and the boolean outcome).
func (r *run) evalConditional(node *Node) (*HandlerResult, *bool, error) {
	condition := node.Property("condition")
	parsed, ok := expr.ParseCondition(condition)
	if !ok {
		return nil, nil, NewError(ErrInvalidCondition,
			"invalid condition %q", condition).WithNode(node.ID)
	}

	outcome, left, right := expr.EvaluateParsed(parsed, r.ec.Variables)
	result := &HandlerResult{
		Input:   fmt.Sprintf("%s %s %s", left, parsed.Operator, right),
		Output:  fmt.Sprintf("%t", outcome),
		Message: fmt.Sprintf("condition evaluated %t", outcome),
	}
	return result, &outcome, nil
}

// bookLoop maintains the per-loop iteration counter: incremented while the
// condition holds, removed once it turns false so a later re-entry restarts
// the count at zero. Exceeding the cap terminates the run.
func (r *run) bookLoop(nodeID string, outcome bool) error {
	if !outcome {
		delete(r.loopIterations, nodeID)
		return nil
	}
	r.loopIterations[nodeID]++
	r.engine.collector.LoopIteration()
	if r.loopIterations[nodeID] > r.engine.maxIterations {
		err := NewError(ErrRunawayGuard,
			"loop exceeded %d iterations", r.engine.maxIterations).WithNode(nodeID)
		r.emitSystemLog(err.Error())
		return err
	}
	return nil
}

// emitSuccess appends the success log entry and audit step for a node.
func (r *run) emitSuccess(node *Node, result *HandlerResult) {
	if result == nil {
		result = &HandlerResult{}
	}
	message := result.Message
	if message == "" {
		message = fmt.Sprintf("%s completed", node.Kind)
	}
	now := time.Now()
	r.appendLog(LogEntry{
		NodeID:    node.ID,
		Kind:      node.Kind,
		Message:   message,
		Timestamp: now,
		Status:    LogSuccess,
		Input:     result.Input,
		Output:    result.Output,
	})
	r.record.appendStep(ExecutionStep{
		NodeID:    node.ID,
		Kind:      node.Kind,
		Timestamp: now,
		Input:     result.Input,
		Output:    result.Output,
		Status:    StepSuccess,
	})
}

// emitFailure appends the error log entry and failed audit step for the
// node that terminated the run.
func (r *run) emitFailure(node *Node, result *HandlerResult, err error) {
	if result == nil {
		result = &HandlerResult{}
	}
	now := time.Now()
	r.appendLog(LogEntry{
		NodeID:    node.ID,
		Kind:      node.Kind,
		Message:   err.Error(),
		Timestamp: now,
		Status:    LogError,
		Input:     result.Input,
		Output:    result.Output,
	})
	r.record.appendStep(ExecutionStep{
		NodeID:    node.ID,
		Kind:      node.Kind,
		Timestamp: now,
		Input:     result.Input,
		Output:    result.Output,
		Status:    StepError,
		Error:     err.Error(),
	})
	r.logger.Error("node failed",
		zap.String("node_id", node.ID),
		zap.String("kind", string(node.Kind)),
		zap.Error(err),
	)
}

// emitSystemLog appends a synthetic engine-level log entry (runaway guard,
// missing start node).
func (r *run) emitSystemLog(message string) {
	r.appendLog(LogEntry{
		NodeID:    "system",
		Message:   message,
		Timestamp: time.Now(),
		Status:    LogError,
	})
}

// appendLog appends to the run log and streams the entry to OnLog.
func (r *run) appendLog(entry LogEntry) {
	r.ec.AppendLog(entry)
	if r.opts.OnLog != nil {
		r.opts.OnLog(entry)
	}
}

// finish moves the record to its terminal state, persists it to the history
// store, and records metrics. It runs exactly once per run.
func (r *run) finish(status RunStatus, err error) {
	r.record.finalize(status, err)
	duration := r.record.EndTime.Sub(r.record.StartTime)
	r.engine.collector.RunFinished(string(status), duration)
	if r.engine.history != nil {
		r.engine.history.Save(r.record)
	}
	r.logger.Info("run finished",
		zap.String("status", string(status)),
		zap.Int("frames", r.frames),
		zap.Int("steps", len(r.record.Steps)),
		zap.Duration("duration", duration),
	)
}
