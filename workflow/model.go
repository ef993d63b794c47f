package workflow

// NodeKind identifies the behavior of a workflow node. The vocabulary is
// closed: a source record carrying any other kind is dropped during parsing
// rather than rejected, so hand-authored definitions stay forward compatible
// with engines that know fewer kinds.
type NodeKind string

const (
	// KindSet assigns a literal (templated) value to a variable.
	KindSet NodeKind = "set"
	// KindExpr assigns the result of a templated expression to a variable.
	KindExpr NodeKind = "expr"
	// KindBranch evaluates a condition and follows the true or false edge.
	KindBranch NodeKind = "branch"
	// KindLoop re-enters its true edge while its condition holds, bounded
	// by the engine's iteration cap.
	KindLoop NodeKind = "loop"
	// KindLLM invokes a language model.
	KindLLM NodeKind = "llm"
	// KindHTTP performs an HTTP request.
	KindHTTP NodeKind = "http"
	// KindExtractJSON extracts a path from a JSON value into a variable.
	KindExtractJSON NodeKind = "extract-json"
	// KindReadFile reads a file from storage.
	KindReadFile NodeKind = "read-file"
	// KindWriteFile writes a file to storage.
	KindWriteFile NodeKind = "write-file"
	// KindAppendFile appends to a file in storage.
	KindAppendFile NodeKind = "append-file"
	// KindSearchFiles searches storage contents.
	KindSearchFiles NodeKind = "search-files"
	// KindListFiles lists storage entries.
	KindListFiles NodeKind = "list-files"
	// KindDialog shows an informational dialog to the user.
	KindDialog NodeKind = "dialog"
	// KindAskValue prompts the user for a value.
	KindAskValue NodeKind = "ask-value"
	// KindPickFile prompts the user to pick a file.
	KindPickFile NodeKind = "pick-file"
	// KindSelect prompts the user to choose from a list of options.
	KindSelect NodeKind = "select"
	// KindSubflow invokes another workflow.
	KindSubflow NodeKind = "subflow"
	// KindToolCall calls a tool over the remote tool protocol.
	KindToolCall NodeKind = "tool-call"
	// KindIndexSync synchronizes an external index.
	KindIndexSync NodeKind = "index-sync"
	// KindWait delays execution for a duration.
	KindWait NodeKind = "wait"
)

var knownKinds = map[NodeKind]struct{}{
	KindSet: {}, KindExpr: {}, KindBranch: {}, KindLoop: {},
	KindLLM: {}, KindHTTP: {}, KindExtractJSON: {},
	KindReadFile: {}, KindWriteFile: {}, KindAppendFile: {},
	KindSearchFiles: {}, KindListFiles: {},
	KindDialog: {}, KindAskValue: {}, KindPickFile: {}, KindSelect: {},
	KindSubflow: {}, KindToolCall: {}, KindIndexSync: {}, KindWait: {},
}

// KnownKind reports whether k belongs to the closed kind vocabulary.
func KnownKind(k NodeKind) bool {
	_, ok := knownKinds[k]
	return ok
}

// Conditional reports whether the kind routes on a boolean condition
// result, which gives its outgoing edges true/false labels.
func (k NodeKind) Conditional() bool {
	return k == KindBranch || k == KindLoop
}

// EdgeLabel marks the branch an edge belongs to. Only edges leaving a
// conditional node carry a label.
type EdgeLabel string

const (
	// LabelNone marks an unconditional edge.
	LabelNone EdgeLabel = ""
	// LabelTrue marks the edge taken when a condition evaluates true.
	LabelTrue EdgeLabel = "true"
	// LabelFalse marks the edge taken when a condition evaluates false.
	LabelFalse EdgeLabel = "false"
)

// Node is an atomic workflow step: a kind tag plus a flat string property
// bag. Properties are untyped by design; each handler validates the keys it
// consumes at point of use.
type Node struct {
	ID         string
	Kind       NodeKind
	Properties map[string]string
}

// Property returns the named property, or "" when absent.
func (n *Node) Property(key string) string {
	return n.Properties[key]
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label EdgeLabel
}

// Workflow is the full node/edge graph plus its start node. It is built
// once by the parser and never mutated during execution; only the run's
// ExecutionContext changes at run time.
type Workflow struct {
	// nodes maps node IDs to node instances.
	nodes map[string]*Node
	// order records node IDs in insertion order. The source format's
	// record order is semantic, so the serializer needs it to place
	// unreachable nodes deterministically.
	order []string
	// edges is the ordered edge list; per-node discovery order is the
	// order edges were added.
	edges []Edge
	// start is the ID of the start node.
	start string
}

// NewWorkflow creates an empty workflow graph.
func NewWorkflow() *Workflow {
	return &Workflow{nodes: make(map[string]*Node)}
}

// AddNode adds a node to the graph. Adding an ID twice replaces the node
// without duplicating its order slot.
func (w *Workflow) AddNode(node *Node) {
	if _, exists := w.nodes[node.ID]; !exists {
		w.order = append(w.order, node.ID)
	}
	w.nodes[node.ID] = node
}

// AddEdge adds a directed edge.
func (w *Workflow) AddEdge(from, to string, label EdgeLabel) {
	w.edges = append(w.edges, Edge{From: from, To: to, Label: label})
}

// SetStart sets the start node ID.
func (w *Workflow) SetStart(id string) {
	w.start = id
}

// Start returns the start node ID.
func (w *Workflow) Start() string {
	return w.start
}

// Node retrieves a node by ID.
func (w *Workflow) Node(id string) (*Node, bool) {
	n, ok := w.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (w *Workflow) Len() int {
	return len(w.nodes)
}

// NodeIDs returns all node IDs in insertion order.
func (w *Workflow) NodeIDs() []string {
	ids := make([]string, len(w.order))
	copy(ids, w.order)
	return ids
}

// Edges returns a copy of the edge list.
func (w *Workflow) Edges() []Edge {
	edges := make([]Edge, len(w.edges))
	copy(edges, w.edges)
	return edges
}

// Outgoing returns the edges leaving the given node in discovery order.
func (w *Workflow) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range w.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}
