/*
Package workflow implements the skein workflow graph engine.

A workflow is a directed graph of nodes parsed from an ordered list of flat
records. Each node carries a kind from a closed vocabulary (variable
assignment, branch, bounded loop, model invocation, HTTP call, storage
operations, interactive prompts, and so on) plus an untyped string property
bag. Edges are wired from the records' next/trueNext/falseNext fields, with
implicit fallthrough to the following record when a field is absent.

The package provides:

  - Parse / Serialize — the flat source format and its graph-preserving
    inverse. Serialization emits the minimal record list that re-parses to
    an isomorphic graph, including convergent edges (several branches
    meeting at one node).
  - NextNodes — successor resolution, label-filtered for branch and loop
    kinds.
  - Engine — the iterative execution state machine: an explicit LIFO work
    list (constant call depth regardless of graph shape), per-loop and
    global iteration caps, cooperative cancellation via context.Context,
    and an ordered log stream plus audit record per run.
  - Handler — the contract to the kind-specific operations. Handlers for
    the pure data-plumbing kinds are built in; externally side-effecting
    kinds (LLM, HTTP, storage, remote tools) are registered by the host.

The expression subsystem ({{variable}} templating and the condition
mini-language) lives in the expr subpackage.
*/
package workflow
