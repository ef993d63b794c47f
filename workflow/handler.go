package workflow

import "context"

// ServiceContext carries the externally owned collaborators handlers need:
// credentials and active host settings. The engine never inspects it; it is
// threaded through to handlers opaquely.
type ServiceContext struct {
	// Credentials holds named secrets (API keys, tokens).
	Credentials map[string]string
	// Settings holds active host settings handlers may consult.
	Settings map[string]any
}

// PromptCallbacks are the human-in-the-loop operations and the sub-workflow
// entry point, owned by the hosting application. A callback left nil makes
// the corresponding node kind fail with a handler error.
type PromptCallbacks struct {
	// ShowDialog displays an informational dialog and waits for dismissal.
	ShowDialog func(ctx context.Context, title, body string) error
	// AskValue prompts the user for a free-form value.
	AskValue func(ctx context.Context, prompt string) (string, error)
	// PickFile prompts the user to pick a file and returns its path.
	PickFile func(ctx context.Context, prompt string) (string, error)
	// Select prompts the user to choose one of the options.
	Select func(ctx context.Context, prompt string, options []string) (string, error)
	// RunSubflow executes the named workflow with the given variables and
	// returns the variables it produced.
	RunSubflow func(ctx context.Context, name string, vars map[string]any) (map[string]any, error)
}

// HandlerResult is the small observational summary a handler returns for the
// audit trail: an input projection (what the node acted on, resolved) and an
// output projection (what it produced). Neither affects control flow.
type HandlerResult struct {
	Input   string
	Output  string
	Message string
}

// Handler performs one node kind's side-effecting operation. A handler may
// suspend on external I/O, must observe ctx for cooperative cancellation,
// and mutates ec.Variables as its only way to feed data back into the
// graph. Failure is signalled by returning an error, which the engine
// treats uniformly regardless of kind: the run terminates with error
// status.
type Handler func(ctx context.Context, node *Node, ec *ExecutionContext, svc *ServiceContext, prompts *PromptCallbacks) (*HandlerResult, error)
