package workflow

// NextNodes resolves the successor node IDs for a node.
//
// For branch and loop kinds it returns the targets of edges whose label
// matches the condition result, and nothing when cond is nil. For every
// other kind it returns all outgoing edge targets, unfiltered. An unknown
// node ID or a terminal node yields an empty result, never an error.
func NextNodes(wf *Workflow, nodeID string, cond *bool) []string {
	node, ok := wf.Node(nodeID)
	if !ok {
		return nil
	}

	if node.Kind.Conditional() {
		if cond == nil {
			return nil
		}
		want := LabelFalse
		if *cond {
			want = LabelTrue
		}
		var targets []string
		for _, edge := range wf.Outgoing(nodeID) {
			if edge.Label == want {
				targets = append(targets, edge.To)
			}
		}
		return targets
	}

	var targets []string
	for _, edge := range wf.Outgoing(nodeID) {
		targets = append(targets, edge.To)
	}
	return targets
}
