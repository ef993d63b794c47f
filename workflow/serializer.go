package workflow

// Serialize emits the minimal flat-record representation of a workflow: a
// source that reproduces the same graph when parsed again.
//
// Emission order is a breadth-first traversal from the start node following
// each node's edges in discovery order; nodes unreachable from the start are
// appended afterwards in insertion order. A node's implicit successor is the
// node that follows it in this emission order.
//
// Conditional nodes always emit trueNext and omit falseNext only when the
// false edge coincides with the implicit successor. Other nodes emit next
// only when their edge target differs from the implicit successor. The
// asymmetry is what keeps convergent edges (several predecessors pointing at
// one successor) intact across a parse/serialize/parse round trip: each
// non-adjacent predecessor keeps its explicit target while the adjacent one
// stays implicit.
func Serialize(wf *Workflow, name string) *Document {
	order := emissionOrder(wf)
	records := make([]Record, 0, len(order))

	for i, id := range order {
		node, _ := wf.Node(id)
		implicit := ""
		if i+1 < len(order) {
			implicit = order[i+1]
		}

		rec := Record{
			FieldID:   node.ID,
			FieldKind: string(node.Kind),
		}
		for key, value := range node.Properties {
			rec[key] = value
		}

		if node.Kind.Conditional() {
			emitConditional(wf, node.ID, implicit, rec)
		} else {
			emitSequential(wf, node.ID, implicit, rec)
		}
		records = append(records, rec)
	}

	return &Document{Name: name, Nodes: records}
}

// emissionOrder computes the canonical record order: BFS from the start
// node, then unreachable nodes in insertion order.
func emissionOrder(wf *Workflow) []string {
	order := make([]string, 0, wf.Len())
	seen := make(map[string]struct{}, wf.Len())

	if start := wf.Start(); start != "" {
		if _, ok := wf.Node(start); ok {
			queue := []string{start}
			seen[start] = struct{}{}
			for len(queue) > 0 {
				id := queue[0]
				queue = queue[1:]
				order = append(order, id)
				for _, edge := range wf.Outgoing(id) {
					if _, visited := seen[edge.To]; visited {
						continue
					}
					seen[edge.To] = struct{}{}
					queue = append(queue, edge.To)
				}
			}
		}
	}

	for _, id := range wf.NodeIDs() {
		if _, visited := seen[id]; !visited {
			order = append(order, id)
		}
	}
	return order
}

// emitConditional writes trueNext (always) and falseNext (when it cannot be
// left implicit) for a branch or loop node.
func emitConditional(wf *Workflow, id, implicit string, rec Record) {
	trueTarget, falseTarget := "", ""
	for _, edge := range wf.Outgoing(id) {
		switch edge.Label {
		case LabelTrue:
			if trueTarget == "" {
				trueTarget = edge.To
			}
		case LabelFalse:
			if falseTarget == "" {
				falseTarget = edge.To
			}
		}
	}

	if trueTarget == "" {
		trueTarget = EndTerminator
	}
	rec[FieldTrueNext] = trueTarget

	switch {
	case falseTarget == "":
		// No false edge. An absent falseNext would re-parse into an
		// implicit edge, so terminate explicitly when a successor exists.
		if implicit != "" {
			rec[FieldFalseNext] = EndTerminator
		}
	case falseTarget != implicit:
		rec[FieldFalseNext] = falseTarget
	}
}

// emitSequential writes next for a non-conditional node when the edge target
// cannot be left implicit.
func emitSequential(wf *Workflow, id, implicit string, rec Record) {
	target := ""
	for _, edge := range wf.Outgoing(id) {
		target = edge.To
		break
	}

	switch {
	case target == "":
		if implicit != "" {
			rec[FieldNext] = EndTerminator
		}
	case target != implicit:
		rec[FieldNext] = target
	}
}
