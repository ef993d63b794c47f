// Package skein provides a top-level convenience entry point for the
// workflow graph engine.
//
// Usage:
//
//	import "github.com/skeinflow/skein"
//
//	doc, err := skein.FromYAML(source)
//	wf, err := doc.Parse()
//	engine := skein.NewEngine(logger)
//	ec, record := engine.Execute(ctx, wf, nil, nil, nil)
//
// This is a thin wrapper around the workflow package; use it when you
// prefer the shorter import path.
package skein

import "github.com/skeinflow/skein/workflow"

// Core graph types.
type (
	Workflow = workflow.Workflow
	Node     = workflow.Node
	Edge     = workflow.Edge
	NodeKind = workflow.NodeKind
	Record   = workflow.Record
	Document = workflow.Document
)

// Execution types.
type (
	Engine           = workflow.Engine
	EngineConfig     = workflow.EngineConfig
	RunOptions       = workflow.RunOptions
	ExecutionContext = workflow.ExecutionContext
	ExecutionRecord  = workflow.ExecutionRecord
	ExecutionStep    = workflow.ExecutionStep
	LogEntry         = workflow.LogEntry
	Handler          = workflow.Handler
	HandlerResult    = workflow.HandlerResult
	ServiceContext   = workflow.ServiceContext
	PromptCallbacks  = workflow.PromptCallbacks
	HistoryStore     = workflow.HistoryStore
)

// Graph operations.
var (
	Parse     = workflow.Parse
	Serialize = workflow.Serialize
	NextNodes = workflow.NextNodes
	FromYAML  = workflow.FromYAML
	FromJSON  = workflow.FromJSON
)

// Engine constructors and options.
var (
	NewEngine           = workflow.NewEngine
	NewHistoryStore     = workflow.NewHistoryStore
	NewMetricsCollector = workflow.NewMetricsCollector
	WithHandler         = workflow.WithHandler
	WithHistory         = workflow.WithHistory
	WithMetrics         = workflow.WithMetrics
	WithConfig          = workflow.WithConfig
)

// Run status values.
const (
	StatusRunning   = workflow.RunStatusRunning
	StatusCompleted = workflow.RunStatusCompleted
	StatusError     = workflow.RunStatusError
	StatusCancelled = workflow.RunStatusCancelled
)
