package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skeinflow/skein/workflow/expr"
)

// builtinHandlers returns the handlers for the kinds the engine can serve
// without externally owned collaborators: pure variable plumbing, delay,
// and the thin adapters that forward prompt kinds and subflow invocation to
// PromptCallbacks. The side-effecting kinds (llm, http, the storage
// operations, tool-call, index-sync) have no built-in handler; the host
// registers those.
func builtinHandlers() map[NodeKind]Handler {
	return map[NodeKind]Handler{
		KindSet:         handleSet,
		KindExpr:        handleExpr,
		KindExtractJSON: handleExtractJSON,
		KindWait:        handleWait,
		KindDialog:      handleDialog,
		KindAskValue:    handleAskValue,
		KindPickFile:    handlePickFile,
		KindSelect:      handleSelect,
		KindSubflow:     handleSubflow,
	}
}

// requireProperty returns the named property or a handler error.
func requireProperty(node *Node, key string) (string, error) {
	value := node.Property(key)
	if value == "" {
		return "", NewError(ErrHandlerFailed, "%s node requires property %q", node.Kind, key).WithNode(node.ID)
	}
	return value, nil
}

// handleSet stores a templated literal value into a variable.
func handleSet(_ context.Context, node *Node, ec *ExecutionContext, _ *ServiceContext, _ *PromptCallbacks) (*HandlerResult, error) {
	name, err := requireProperty(node, "name")
	if err != nil {
		return nil, err
	}
	raw := node.Property("value")
	value := expr.Render(raw, ec.Variables)
	ec.Variables[name] = value
	return &HandlerResult{
		Input:   raw,
		Output:  value,
		Message: fmt.Sprintf("set %s", name),
	}, nil
}

// handleExpr renders the expression, evaluates it arithmetically when it
// reduces to one, and stores the result into a variable. Non-arithmetic
// results are stored as strings.
func handleExpr(_ context.Context, node *Node, ec *ExecutionContext, _ *ServiceContext, _ *PromptCallbacks) (*HandlerResult, error) {
	name, err := requireProperty(node, "name")
	if err != nil {
		return nil, err
	}
	expression, err := requireProperty(node, "expression")
	if err != nil {
		return nil, err
	}
	rendered := expr.Render(expression, ec.Variables)
	var output string
	if number, ok := expr.EvalArithmetic(rendered); ok {
		ec.Variables[name] = number
		output = expr.Stringify(number)
	} else {
		ec.Variables[name] = rendered
		output = rendered
	}
	return &HandlerResult{
		Input:   expression,
		Output:  output,
		Message: fmt.Sprintf("evaluated %s", name),
	}, nil
}

// handleExtractJSON extracts a path from a JSON-valued variable into
// another variable.
func handleExtractJSON(_ context.Context, node *Node, ec *ExecutionContext, _ *ServiceContext, _ *PromptCallbacks) (*HandlerResult, error) {
	source, err := requireProperty(node, "source")
	if err != nil {
		return nil, err
	}
	name, err := requireProperty(node, "name")
	if err != nil {
		return nil, err
	}
	path := node.Property("path")

	raw, ok := ec.Variables[source]
	if !ok {
		return nil, NewError(ErrHandlerFailed, "variable %q is not set", source).WithNode(node.ID)
	}
	value, ok := expr.ExtractPath(expr.Stringify(raw), path)
	if !ok {
		return nil, NewError(ErrHandlerFailed, "path %q not found in variable %q", path, source).WithNode(node.ID)
	}
	ec.Variables[name] = value
	return &HandlerResult{
		Input:   fmt.Sprintf("%s %s", source, path),
		Output:  value,
		Message: fmt.Sprintf("extracted %s", name),
	}, nil
}

// handleWait delays execution, observing ctx for cancellation. The duration
// property accepts Go duration syntax ("1s", "250ms") or a bare number of
// milliseconds.
func handleWait(ctx context.Context, node *Node, ec *ExecutionContext, _ *ServiceContext, _ *PromptCallbacks) (*HandlerResult, error) {
	raw, err := requireProperty(node, "duration")
	if err != nil {
		return nil, err
	}
	rendered := expr.Render(raw, ec.Variables)

	duration, parseErr := time.ParseDuration(rendered)
	if parseErr != nil {
		ms, msErr := strconv.ParseFloat(rendered, 64)
		if msErr != nil {
			return nil, NewError(ErrHandlerFailed, "invalid duration %q", rendered).WithNode(node.ID).WithCause(parseErr)
		}
		duration = time.Duration(ms * float64(time.Millisecond))
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return &HandlerResult{
		Input:   rendered,
		Message: fmt.Sprintf("waited %s", duration),
	}, nil
}

// handleDialog shows an informational dialog through the prompt callbacks.
func handleDialog(ctx context.Context, node *Node, ec *ExecutionContext, _ *ServiceContext, prompts *PromptCallbacks) (*HandlerResult, error) {
	if prompts == nil || prompts.ShowDialog == nil {
		return nil, NewError(ErrHandlerFailed, "no dialog callback configured").WithNode(node.ID)
	}
	title := expr.Render(node.Property("title"), ec.Variables)
	body := expr.Render(node.Property("body"), ec.Variables)
	if err := prompts.ShowDialog(ctx, title, body); err != nil {
		return nil, err
	}
	return &HandlerResult{Input: title, Message: "dialog shown"}, nil
}

// handleAskValue prompts the user for a value and stores it.
func handleAskValue(ctx context.Context, node *Node, ec *ExecutionContext, _ *ServiceContext, prompts *PromptCallbacks) (*HandlerResult, error) {
	if prompts == nil || prompts.AskValue == nil {
		return nil, NewError(ErrHandlerFailed, "no value prompt callback configured").WithNode(node.ID)
	}
	name, err := requireProperty(node, "name")
	if err != nil {
		return nil, err
	}
	prompt := expr.Render(node.Property("prompt"), ec.Variables)
	value, err := prompts.AskValue(ctx, prompt)
	if err != nil {
		return nil, err
	}
	ec.Variables[name] = value
	return &HandlerResult{Input: prompt, Output: value, Message: fmt.Sprintf("set %s from prompt", name)}, nil
}

// handlePickFile prompts the user to pick a file and stores the path.
func handlePickFile(ctx context.Context, node *Node, ec *ExecutionContext, _ *ServiceContext, prompts *PromptCallbacks) (*HandlerResult, error) {
	if prompts == nil || prompts.PickFile == nil {
		return nil, NewError(ErrHandlerFailed, "no file prompt callback configured").WithNode(node.ID)
	}
	name, err := requireProperty(node, "name")
	if err != nil {
		return nil, err
	}
	prompt := expr.Render(node.Property("prompt"), ec.Variables)
	path, err := prompts.PickFile(ctx, prompt)
	if err != nil {
		return nil, err
	}
	ec.Variables[name] = path
	return &HandlerResult{Input: prompt, Output: path, Message: fmt.Sprintf("set %s from file pick", name)}, nil
}

// handleSelect prompts the user to choose one of the configured options and
// stores the choice. Options are a JSON array or a comma-separated list.
func handleSelect(ctx context.Context, node *Node, ec *ExecutionContext, _ *ServiceContext, prompts *PromptCallbacks) (*HandlerResult, error) {
	if prompts == nil || prompts.Select == nil {
		return nil, NewError(ErrHandlerFailed, "no selection callback configured").WithNode(node.ID)
	}
	name, err := requireProperty(node, "name")
	if err != nil {
		return nil, err
	}
	raw, err := requireProperty(node, "options")
	if err != nil {
		return nil, err
	}
	options := parseOptions(expr.Render(raw, ec.Variables))
	if len(options) == 0 {
		return nil, NewError(ErrHandlerFailed, "select node has no options").WithNode(node.ID)
	}
	prompt := expr.Render(node.Property("prompt"), ec.Variables)
	choice, err := prompts.Select(ctx, prompt, options)
	if err != nil {
		return nil, err
	}
	ec.Variables[name] = choice
	return &HandlerResult{Input: strings.Join(options, ", "), Output: choice, Message: fmt.Sprintf("set %s from selection", name)}, nil
}

// parseOptions parses a JSON array of options, falling back to a
// comma-separated list.
func parseOptions(raw string) []string {
	var fromJSON []string
	if err := json.Unmarshal([]byte(raw), &fromJSON); err == nil {
		return fromJSON
	}
	var options []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			options = append(options, part)
		}
	}
	return options
}

// handleSubflow invokes another workflow through the host callback and
// merges the variables it returns.
func handleSubflow(ctx context.Context, node *Node, ec *ExecutionContext, _ *ServiceContext, prompts *PromptCallbacks) (*HandlerResult, error) {
	if prompts == nil || prompts.RunSubflow == nil {
		return nil, NewError(ErrHandlerFailed, "no subflow callback configured").WithNode(node.ID)
	}
	name, err := requireProperty(node, "workflow")
	if err != nil {
		return nil, err
	}
	produced, err := prompts.RunSubflow(ctx, name, ec.Variables)
	if err != nil {
		return nil, err
	}
	for key, value := range produced {
		ec.Variables[key] = value
	}
	return &HandlerResult{
		Input:   name,
		Output:  fmt.Sprintf("%d variables", len(produced)),
		Message: fmt.Sprintf("subflow %s completed", name),
	}, nil
}
