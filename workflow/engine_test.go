package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func mustParse(t *testing.T, records []Record) *Workflow {
	t.Helper()
	wf, err := Parse(records)
	require.NoError(t, err)
	return wf
}

// branchScenario is the canonical routing workflow: set x, branch on it,
// land in one of two assignment nodes.
func branchScenario(t *testing.T, x string) *Workflow {
	t.Helper()
	return mustParse(t, []Record{
		{"id": "a", "kind": "set", "name": "x", "value": x},
		{"id": "b", "kind": "branch", "condition": "{{x}} > 3", "trueNext": "c", "falseNext": "d"},
		{"id": "c", "kind": "set", "name": "r", "value": "big", "next": "end"},
		{"id": "d", "kind": "set", "name": "r", "value": "small"},
	})
}

func stepIDs(record *ExecutionRecord) []string {
	ids := make([]string, 0, len(record.Steps))
	for _, step := range record.Steps {
		ids = append(ids, step.NodeID)
	}
	return ids
}

func TestEngine_BranchTrueScenario(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))

	ec, record := engine.Execute(context.Background(), branchScenario(t, "5"), nil, nil, nil)

	assert.Equal(t, RunStatusCompleted, record.Status)
	assert.Equal(t, "big", ec.Variables["r"])
	assert.Equal(t, []string{"a", "b", "c"}, stepIDs(record))
	assert.False(t, record.EndTime.IsZero())
	assert.NotEmpty(t, record.ID)
}

func TestEngine_BranchFalseScenario(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))

	ec, record := engine.Execute(context.Background(), branchScenario(t, "1"), nil, nil, nil)

	assert.Equal(t, RunStatusCompleted, record.Status)
	assert.Equal(t, "small", ec.Variables["r"])
	assert.Equal(t, []string{"a", "b", "d"}, stepIDs(record))
}

func TestEngine_BranchStepRecordsResolvedOperands(t *testing.T) {
	engine := NewEngine(nil)

	_, record := engine.Execute(context.Background(), branchScenario(t, "5"), nil, nil, nil)

	require.Len(t, record.Steps, 3)
	branchStep := record.Steps[1]
	assert.Equal(t, KindBranch, branchStep.Kind)
	assert.Equal(t, "5 > 3", branchStep.Input)
	assert.Equal(t, "true", branchStep.Output)
}

func TestEngine_Determinism(t *testing.T) {
	engine := NewEngine(nil)
	wf := branchScenario(t, "5")

	type projection struct {
		NodeID  string
		Status  LogStatus
		Message string
		Input   string
		Output  string
	}
	project := func(logs []LogEntry) []projection {
		out := make([]projection, 0, len(logs))
		for _, e := range logs {
			out = append(out, projection{e.NodeID, e.Status, e.Message, e.Input, e.Output})
		}
		return out
	}

	first, _ := engine.Execute(context.Background(), wf, nil, nil, nil)
	second, _ := engine.Execute(context.Background(), wf, nil, nil, nil)

	assert.Equal(t, project(first.Logs), project(second.Logs))
}

func TestEngine_BoundedLoopCompletes(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	wf := mustParse(t, []Record{
		{"id": "init", "kind": "set", "name": "i", "value": "0"},
		{"id": "head", "kind": "loop", "condition": "{{i}} < 3", "trueNext": "body", "falseNext": "after"},
		{"id": "body", "kind": "expr", "name": "i", "expression": "{{i}} + 1", "next": "head"},
		{"id": "after", "kind": "set", "name": "done", "value": "yes"},
	})

	ec, record := engine.Execute(context.Background(), wf, nil, nil, nil)

	assert.Equal(t, RunStatusCompleted, record.Status)
	assert.Equal(t, float64(3), ec.Variables["i"])
	assert.Equal(t, "yes", ec.Variables["done"])

	headEvals := 0
	for _, step := range record.Steps {
		if step.NodeID == "head" {
			headEvals++
		}
	}
	// Three true evaluations plus the final false one.
	assert.Equal(t, 4, headEvals)
}

func TestEngine_RunawayLoopHaltsWithError(t *testing.T) {
	engine := NewEngine(nil, WithConfig(EngineConfig{MaxIterations: 25}))
	wf := mustParse(t, []Record{
		{"id": "spin", "kind": "loop", "condition": "1 == 1", "trueNext": "spin", "falseNext": "end"},
	})

	ec, record := engine.Execute(context.Background(), wf, nil, nil, nil)

	assert.Equal(t, RunStatusError, record.Status)
	assert.Contains(t, record.Error, "exceeded")
	// The guard trips before the capping frame is dispatched.
	assert.Len(t, record.Steps, 24)

	last := ec.Logs[len(ec.Logs)-1]
	assert.Equal(t, "system", last.NodeID)
	assert.Equal(t, LogError, last.Status)
}

func TestEngine_DefaultRunawayCapIsFixed(t *testing.T) {
	engine := NewEngine(nil)
	wf := mustParse(t, []Record{
		{"id": "spin", "kind": "loop", "condition": "1 == 1", "trueNext": "spin", "falseNext": "end"},
	})

	_, record := engine.Execute(context.Background(), wf, nil, nil, nil)

	assert.Equal(t, RunStatusError, record.Status)
	assert.Len(t, record.Steps, DefaultMaxIterations-1)
}

func TestRun_BookLoopCounterLifecycle(t *testing.T) {
	r := &run{
		engine:         NewEngine(nil, WithConfig(EngineConfig{MaxIterations: 3})),
		loopIterations: make(map[string]int),
	}
	r.ec = NewExecutionContext(nil)
	r.record = newExecutionRecord("t", "t")
	r.opts = &RunOptions{}

	require.NoError(t, r.bookLoop("head", true))
	require.NoError(t, r.bookLoop("head", true))
	assert.Equal(t, 2, r.loopIterations["head"])

	// A false outcome removes the counter so re-entry restarts at zero.
	require.NoError(t, r.bookLoop("head", false))
	_, present := r.loopIterations["head"]
	assert.False(t, present)

	require.NoError(t, r.bookLoop("head", true))
	require.NoError(t, r.bookLoop("head", true))
	require.NoError(t, r.bookLoop("head", true))
	err := r.bookLoop("head", true)
	require.Error(t, err)
	assert.Equal(t, ErrRunawayGuard, GetErrorCode(err))
}

func TestEngine_CancelledBeforeStart(t *testing.T) {
	engine := NewEngine(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ec, record := engine.Execute(ctx, branchScenario(t, "5"), nil, nil, nil)

	assert.Equal(t, RunStatusCancelled, record.Status)
	assert.Empty(t, record.Steps)
	assert.Empty(t, ec.Logs)
	assert.Empty(t, record.Error)
}

func TestEngine_CancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := NewEngine(nil, WithHandler(KindHTTP,
		func(context.Context, *Node, *ExecutionContext, *ServiceContext, *PromptCallbacks) (*HandlerResult, error) {
			cancel()
			return &HandlerResult{Message: "fetched"}, nil
		}))
	wf := mustParse(t, []Record{
		{"id": "a", "kind": "set", "name": "x", "value": "1"},
		{"id": "b", "kind": "http", "url": "https://example.com"},
		{"id": "c", "kind": "set", "name": "r", "value": "never"},
	})

	ec, record := engine.Execute(ctx, wf, nil, nil, nil)

	assert.Equal(t, RunStatusCancelled, record.Status)
	assert.Equal(t, []string{"a", "b"}, stepIDs(record))
	_, ran := ec.Variables["r"]
	assert.False(t, ran)
}

func TestEngine_HandlerErrorTerminatesRun(t *testing.T) {
	boom := errors.New("upstream exploded")
	engine := NewEngine(zaptest.NewLogger(t), WithHandler(KindHTTP,
		func(context.Context, *Node, *ExecutionContext, *ServiceContext, *PromptCallbacks) (*HandlerResult, error) {
			return nil, boom
		}))
	wf := mustParse(t, []Record{
		{"id": "a", "kind": "set", "name": "x", "value": "1"},
		{"id": "b", "kind": "http", "url": "https://example.com"},
		{"id": "c", "kind": "set", "name": "r", "value": "never"},
	})

	ec, record := engine.Execute(context.Background(), wf, nil, nil, nil)

	assert.Equal(t, RunStatusError, record.Status)
	assert.Equal(t, []string{"a", "b"}, stepIDs(record))
	assert.Equal(t, StepError, record.Steps[1].Status)
	assert.Contains(t, record.Steps[1].Error, "upstream exploded")
	assert.Contains(t, record.Error, "upstream exploded")
	_, ran := ec.Variables["r"]
	assert.False(t, ran)
}

func TestEngine_UnregisteredKindFailsRun(t *testing.T) {
	engine := NewEngine(nil)
	wf := mustParse(t, []Record{
		{"id": "a", "kind": "llm", "prompt": "hello"},
	})

	_, record := engine.Execute(context.Background(), wf, nil, nil, nil)

	assert.Equal(t, RunStatusError, record.Status)
	assert.Contains(t, record.Error, "no handler registered")
}

func TestEngine_InvalidConditionFailsRun(t *testing.T) {
	engine := NewEngine(nil)
	wf := mustParse(t, []Record{
		{"id": "gate", "kind": "branch", "condition": "no operator here", "trueNext": "a", "falseNext": "end"},
		{"id": "a", "kind": "set", "name": "x", "value": "1"},
	})

	_, record := engine.Execute(context.Background(), wf, nil, nil, nil)

	assert.Equal(t, RunStatusError, record.Status)
	assert.Contains(t, record.Error, "invalid condition")
}

func TestEngine_MissingNodeFrameSkippedSilently(t *testing.T) {
	wf := NewWorkflow()
	wf.AddNode(&Node{ID: "a", Kind: KindSet, Properties: map[string]string{"name": "x", "value": "1"}})
	wf.AddEdge("a", "ghost", LabelNone)
	wf.SetStart("a")

	engine := NewEngine(zaptest.NewLogger(t))
	_, record := engine.Execute(context.Background(), wf, nil, nil, nil)

	assert.Equal(t, RunStatusCompleted, record.Status)
	assert.Equal(t, []string{"a"}, stepIDs(record))
}

func TestEngine_NoStartNodeFailsRun(t *testing.T) {
	engine := NewEngine(nil)

	_, record := engine.Execute(context.Background(), NewWorkflow(), nil, nil, nil)

	assert.Equal(t, RunStatusError, record.Status)
	assert.Contains(t, record.Error, "no start node")
}

func TestEngine_OnLogStreamsEveryEntry(t *testing.T) {
	engine := NewEngine(nil)

	var streamed []LogEntry
	ec, _ := engine.Execute(context.Background(), branchScenario(t, "5"), nil, nil, &RunOptions{
		OnLog: func(entry LogEntry) { streamed = append(streamed, entry) },
	})

	assert.Equal(t, ec.Logs, streamed)
}

func TestEngine_InitialVariablesCopied(t *testing.T) {
	engine := NewEngine(nil)
	initial := map[string]any{"x": 5}

	ec, record := engine.Execute(context.Background(), mustParse(t, []Record{
		{"id": "a", "kind": "set", "name": "y", "value": "{{x}}0"},
	}), initial, nil, nil)

	assert.Equal(t, RunStatusCompleted, record.Status)
	assert.Equal(t, "50", ec.Variables["y"])
	assert.Len(t, initial, 1)
}

func TestEngine_HistoryStoreReceivesFinalizedRecord(t *testing.T) {
	store := NewHistoryStore()
	engine := NewEngine(nil, WithHistory(store))

	_, record := engine.Execute(context.Background(), branchScenario(t, "5"), nil, nil, &RunOptions{
		RunID:        "run-1",
		WorkflowName: "routing",
	})

	assert.Equal(t, "run-1", record.ID)
	assert.Equal(t, "routing", record.WorkflowID)

	saved, ok := store.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, RunStatusCompleted, saved.Status)
	assert.Len(t, store.ListByWorkflow("routing"), 1)
}

func TestEngine_MetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	engine := NewEngine(nil, WithMetrics(NewMetricsCollector("skein_test", reg)))

	_, record := engine.Execute(context.Background(), branchScenario(t, "5"), nil, nil, nil)
	require.Equal(t, RunStatusCompleted, record.Status)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]struct{}, len(families))
	for _, mf := range families {
		names[mf.GetName()] = struct{}{}
	}
	assert.Contains(t, names, "skein_test_runs_total")
	assert.Contains(t, names, "skein_test_frames_total")
}
